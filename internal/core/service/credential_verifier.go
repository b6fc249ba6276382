package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// dummyPassword is hashed once at construction. Its hash is verified when a
// username does not resolve, so a miss costs the same as a mismatch.
const dummyPassword = "not-a-credential-0"

// CredentialVerifier checks a username/password pair against stored hashes.
// It never writes.
type CredentialVerifier struct {
	repo      ports.UserRepository
	hasher    ports.PasswordHasher
	dummyHash string
}

func NewCredentialVerifier(repo ports.UserRepository, hasher ports.PasswordHasher) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &CredentialVerifier{repo: repo, hasher: hasher, dummyHash: dummy}, nil
}

// Authenticate returns the user owning username when password matches.
// Unknown usernames and wrong passwords both yield
// domain.ErrInvalidCredentials; store failures are wrapped with
// domain.ErrStore.
func (v *CredentialVerifier) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := v.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			v.hasher.Verify(password, v.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w: %w", domain.ErrStore, err)
	}

	if !v.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
