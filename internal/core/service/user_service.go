package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// UserService enforces validation and uniqueness before any user write
// reaches the store.
type UserService struct {
	repo      ports.UserRepository
	validator *Validator
	hasher    ports.PasswordHasher
	locker    ports.ClaimLocker   // optional
	audit     ports.AuditRecorder // optional
	log       zerolog.Logger
}

func NewUserService(
	repo ports.UserRepository,
	validator *Validator,
	hasher ports.PasswordHasher,
	locker ports.ClaimLocker,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		repo:      repo,
		validator: validator,
		hasher:    hasher,
		locker:    locker,
		audit:     audit,
		log:       log,
	}
}

// CreateUser validates and persists a new user. Checks run in a fixed order
// and the first failure is returned: username taken, email missing, email
// format, email taken, password format.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, domain.ErrUsernameRequired
	}

	releaseUsername, err := s.claim(ctx, "username", in.Username, domain.ErrUsernameTaken)
	if err != nil {
		return nil, err
	}
	defer releaseUsername()

	taken, err := s.usernameTakenBy(ctx, in.Username, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	if strings.TrimSpace(in.Email) == "" {
		return nil, domain.ErrEmailRequired
	}
	if !s.validator.ValidateEmail(in.Email) {
		return nil, domain.ErrInvalidEmailFormat
	}

	releaseEmail, err := s.claim(ctx, "email", in.Email, domain.ErrEmailTaken)
	if err != nil {
		return nil, err
	}
	defer releaseEmail()

	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeError("check email", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	if !s.validator.ValidatePassword(in.Password) {
		return nil, domain.ErrInvalidPasswordFormat
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
		Phones:       newPhones(in.Phones),
	}

	// CreatedAt is assigned by the store, so lastLogin needs a second write.
	created, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, storeError("create user", err)
	}
	created, err = s.repo.TouchLastLogin(ctx, created.ID, created.CreatedAt)
	if err != nil {
		return nil, storeError("set initial last login", err)
	}

	s.log.Info().Str("user_id", created.ID).Int("phones", len(created.Phones)).Msg("user created")
	s.record(domain.EventUserRegistered, created.ID, created.Username)
	return created, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return users, nil
}

// UpdateUser applies the supplied fields of in to the user. Blank strings
// count as absent; Active applies whenever present, including false. If the
// user is written by another request after it was loaded here, the update
// fails with domain.ErrStaleUser and nothing is written.
func (s *UserService) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("load user", err)
	}

	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	if username, ok := presentString(in.Username); ok {
		release, err := s.claim(ctx, "username", username, domain.ErrUsernameTaken)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)

		taken, err := s.usernameTakenBy(ctx, username, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrUsernameTaken
		}
		user.Username = username
	}

	if email, ok := presentString(in.Email); ok {
		if !s.validator.ValidateEmail(email) {
			return nil, domain.ErrInvalidEmailFormat
		}
		release, err := s.claim(ctx, "email", email, domain.ErrEmailTaken)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)

		existing, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return nil, domain.ErrEmailTaken
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, storeError("check email", err)
		}
		user.Email = email
	}

	if password, ok := presentString(in.Password); ok {
		if !s.validator.ValidatePassword(password) {
			return nil, domain.ErrInvalidPasswordFormat
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if active, ok := in.Active.Get(); ok {
		user.Active = active
	}

	if phones, ok := in.Phones.Get(); ok {
		user.Phones = newPhones(phones)
	}

	updated, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, storeError("update user", err)
	}

	s.log.Info().Str("user_id", updated.ID).Msg("user updated")
	s.record(domain.EventUserUpdated, updated.ID, updated.Username)
	return updated, nil
}

// DeleteUser removes the user and its phones. It reports false, without
// touching the store, when id is unknown.
func (s *UserService) DeleteUser(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, storeError("check user", err)
	}
	if !exists {
		return false, nil
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, storeError("delete user", err)
	}

	s.log.Info().Str("user_id", id).Msg("user deleted")
	s.record(domain.EventUserDeleted, id, "")
	return true, nil
}

// usernameTakenBy reports whether username belongs to a user other than
// selfID. An empty selfID matches any holder.
func (s *UserService) usernameTakenBy(ctx context.Context, username, selfID string) (bool, error) {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, storeError("check username", err)
	}
	return existing.ID != selfID, nil
}

// claim takes the cross-replica lock on a unique value. A lock backend
// failure is logged and ignored; the store's unique constraints still hold.
func (s *UserService) claim(ctx context.Context, field, value string, conflict error) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	release, acquired, err := s.locker.Acquire(ctx, field+":"+value)
	if err != nil {
		s.log.Warn().Err(err).Str("field", field).Msg("claim lock unavailable, relying on store constraints")
		return noop, nil
	}
	if !acquired {
		return nil, conflict
	}
	return release, nil
}

func (s *UserService) record(typ domain.AuthEventType, userID, username string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.AuthEvent{Type: typ, UserID: userID, Username: username})
}

func presentString(o domain.Optional[string]) (string, bool) {
	v, ok := o.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func newPhones(in []ports.PhoneInput) []domain.Phone {
	phones := make([]domain.Phone, 0, len(in))
	for _, p := range in {
		phones = append(phones, domain.Phone{
			ID:          uuid.NewString(),
			Number:      p.Number,
			CityCode:    p.CityCode,
			CountryCode: p.CountryCode,
		})
	}
	return phones
}

// storeError passes classified store outcomes through and marks anything
// else as a store failure.
func storeError(op string, err error) error {
	switch domain.KindOf(err) {
	case domain.KindConflict, domain.KindNotFound:
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}
