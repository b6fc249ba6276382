package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	usersCollection = "users"
	usernameIndex   = "uniq_username"
	emailIndex      = "uniq_email"
)

// UserRepository implements ports.UserRepository. Phones are embedded in
// the user document, so deleting a user or replacing its phone list
// removes the old phones in the same write.
type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), now: time.Now}
}

type mongoPhone struct {
	ID          string `bson:"id"`
	Number      string `bson:"number"`
	CityCode    string `bson:"city_code"`
	CountryCode string `bson:"country_code"`
}

type mongoUser struct {
	ID           string       `bson:"_id"`
	Username     string       `bson:"username"`
	Email        string       `bson:"email"`
	PasswordHash string       `bson:"password_hash"`
	Role         string       `bson:"role"`
	Active       bool         `bson:"active"`
	CreatedAt    time.Time    `bson:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at"`
	LastLogin    *time.Time   `bson:"last_login,omitempty"`
	Phones       []mongoPhone `bson:"phones"`
}

// EnsureIndexes creates the unique indexes that back username and email
// uniqueness.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *UserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, bson.M{"_id": id})
}

// List returns all users, oldest first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, toDomainUser(&docs[i]))
	}
	return users, nil
}

// Save inserts a user without an ID and updates one that has an ID. The
// update only matches while the stored updated_at equals user.UpdatedAt, and
// leaves last_login alone.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	now := r.now().UTC().Truncate(time.Millisecond)

	if doc.ID == "" {
		doc.ID = uuid.NewString()
		doc.CreatedAt = now
		doc.UpdatedAt = now
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return nil, classifyWriteError("insert user", err)
		}
		return toDomainUser(doc), nil
	}

	read := doc.UpdatedAt.Truncate(time.Millisecond)
	filter := bson.M{"_id": doc.ID, "updated_at": read}
	update := bson.M{"$set": bson.M{
		"username":      doc.Username,
		"email":         doc.Email,
		"password_hash": doc.PasswordHash,
		"role":          doc.Role,
		"active":        doc.Active,
		"phones":        doc.Phones,
		"updated_at":    nextUpdatedAt(now, read),
	}}

	var stored mongoUser
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrStale(ctx, doc.ID)
	}
	if err != nil {
		return nil, classifyWriteError("update user", err)
	}
	return toDomainUser(&stored), nil
}

// TouchLastLogin writes last_login and updated_at only.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"last_login": at.UTC().Truncate(time.Millisecond),
		"updated_at": r.now().UTC().Truncate(time.Millisecond),
	}}

	var stored mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	return toDomainUser(&stored), nil
}

// missOrStale tells a deleted user from one that was modified since it was
// read.
func (r *UserRepository) missOrStale(ctx context.Context, id string) error {
	ok, err := r.exists(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return domain.ErrStaleUser
}

// nextUpdatedAt keeps updated_at strictly increasing at millisecond
// precision, so two writes based on the same read can never both match.
func nextUpdatedAt(now, read time.Time) time.Time {
	if now.After(read) {
		return now
	}
	return read.Add(time.Millisecond)
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toDomainUser(&doc), nil
}

func (r *UserRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// classifyWriteError turns unique index violations into the matching
// conflict error.
func classifyWriteError(op string, err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, emailIndex):
		return domain.ErrEmailTaken
	case strings.Contains(msg, usernameIndex):
		return domain.ErrUsernameTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toMongoUser(u *domain.User) *mongoUser {
	doc := &mongoUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
		Phones:       make([]mongoPhone, 0, len(u.Phones)),
	}
	if u.LastLogin != nil {
		ll := u.LastLogin.UTC().Truncate(time.Millisecond)
		doc.LastLogin = &ll
	}
	for _, p := range u.Phones {
		doc.Phones = append(doc.Phones, mongoPhone{
			ID:          p.ID,
			Number:      p.Number,
			CityCode:    p.CityCode,
			CountryCode: p.CountryCode,
		})
	}
	return doc
}

func toDomainUser(doc *mongoUser) *domain.User {
	u := &domain.User{
		ID:           doc.ID,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         doc.Role,
		Active:       doc.Active,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
		Phones:       make([]domain.Phone, 0, len(doc.Phones)),
	}
	if doc.LastLogin != nil {
		ll := doc.LastLogin.UTC()
		u.LastLogin = &ll
	}
	for _, p := range doc.Phones {
		u.Phones = append(u.Phones, domain.Phone{
			ID:          p.ID,
			Number:      p.Number,
			CityCode:    p.CityCode,
			CountryCode: p.CountryCode,
		})
	}
	return u
}
