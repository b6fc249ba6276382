package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// PhoneInput carries a contact number supplied by a caller.
type PhoneInput struct {
	Number      string
	CityCode    string
	CountryCode string
}

// CreateUserInput carries registration data.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Phones   []PhoneInput
}

// UpdateUserInput carries an update. Absent fields are left untouched; a
// present Phones replaces the whole phone set, even when empty.
type UpdateUserInput struct {
	Username domain.Optional[string]
	Email    domain.Optional[string]
	Password domain.Optional[string]
	Active   domain.Optional[bool]
	Phones   domain.Optional[[]PhoneInput]
}

// UserService manages the user record lifecycle.
type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// SessionResult is returned by login and registration.
type SessionResult struct {
	User  *domain.User
	Token string
}

// SessionService authenticates callers and issues bearer tokens.
type SessionService interface {
	Register(ctx context.Context, input CreateUserInput) (*SessionResult, error)
	Login(ctx context.Context, username, password string) (*SessionResult, error)
}
