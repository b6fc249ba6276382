package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func duplicateKey(index string) error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{
			Code:    11000,
			Message: "E11000 duplicate key error collection: identity.users index: " + index + " dup key",
		}},
	}
}

func TestClassifyWriteError_Username(t *testing.T) {
	if err := classifyWriteError("insert user", duplicateKey(usernameIndex)); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestClassifyWriteError_Email(t *testing.T) {
	if err := classifyWriteError("insert user", duplicateKey(emailIndex)); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestClassifyWriteError_Other(t *testing.T) {
	cause := errors.New("connection reset")
	err := classifyWriteError("insert user", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
	if domain.KindOf(err) != domain.KindUnknown {
		t.Fatalf("expected unclassified error, got kind %s", domain.KindOf(err))
	}
}

func TestUserMapping_RoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	last := created.Add(time.Hour)
	in := &domain.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
		LastLogin:    &last,
		Phones: []domain.Phone{
			{ID: "p-1", Number: "1234567", CityCode: "1", CountryCode: "57"},
		},
	}

	out := toDomainUser(toMongoUser(in))

	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestUserMapping_NilPhonesBecomeEmpty(t *testing.T) {
	doc := toMongoUser(&domain.User{ID: "u-1"})
	if doc.Phones == nil {
		t.Fatalf("expected empty phone array, got nil")
	}
	if doc.LastLogin != nil {
		t.Fatalf("expected no last login")
	}
}

func TestClassifyWriteError_FindAndModifyDuplicate(t *testing.T) {
	err := mongo.CommandError{
		Code:    11000,
		Message: "E11000 duplicate key error collection: identity.users index: " + emailIndex + " dup key",
	}
	if got := classifyWriteError("update user", err); !errors.Is(got, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", got)
	}
}

func TestNextUpdatedAt_StrictlyIncreases(t *testing.T) {
	read := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := nextUpdatedAt(read.Add(time.Second), read); !got.Equal(read.Add(time.Second)) {
		t.Fatalf("expected clock time, got %v", got)
	}
	if got := nextUpdatedAt(read, read); !got.After(read) {
		t.Fatalf("same millisecond must still advance, got %v", got)
	}
	if got := nextUpdatedAt(read.Add(-time.Minute), read); !got.After(read) {
		t.Fatalf("clock skew must still advance, got %v", got)
	}
}
