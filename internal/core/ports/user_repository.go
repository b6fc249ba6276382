package ports

import (
	"context"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// UserRepository is the user store. Lookups return domain.ErrUserNotFound
// when nothing matches.
//
// Save assigns ID and CreatedAt on the first save of a user and refreshes
// UpdatedAt on every save. Implementations must reject a write that would
// break username or email uniqueness with domain.ErrUsernameTaken or
// domain.ErrEmailTaken, even when the caller's pre-check passed.
//
// Saving an existing user is conditional on its stored UpdatedAt still
// matching the one the caller read; otherwise Save fails with
// domain.ErrStaleUser. Save never writes LastLogin of an existing user;
// TouchLastLogin is the only writer of that field.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*domain.User, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	// TouchLastLogin sets LastLogin and refreshes UpdatedAt without touching
	// any other field, and returns the stored user.
	TouchLastLogin(ctx context.Context, id string, at time.Time) (*domain.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// PasswordHasher derives and checks password hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A malformed hash is a
	// mismatch, not an error.
	Verify(plaintext, hash string) bool
}

// ClaimLocker serialises check-then-write sequences on a unique value
// across service replicas.
type ClaimLocker interface {
	// Acquire tries to take the claim on key. acquired is false when another
	// holder has it. release must be called once the write has completed.
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}
