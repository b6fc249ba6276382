package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const defaultTokenTTL = 24 * time.Hour

// TokenIssuer turns verified identities into signed, time-bounded bearer
// tokens and back.
type TokenIssuer struct {
	signer ports.TokenSigner
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(signer ports.TokenSigner, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{signer: signer, ttl: ttl, now: time.Now}
}

// Issue signs a token for identity. Every token carries a fresh id, so two
// tokens issued at the same instant still differ.
func (i *TokenIssuer) Issue(identity domain.Identity) (string, error) {
	now := i.now().UTC()
	return i.signer.Sign(ports.TokenClaims{
		ID:        uuid.NewString(),
		Subject:   identity.UserID,
		Username:  identity.Username,
		Role:      identity.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	})
}

// Verify returns the identity a token was issued for. It fails with
// domain.ErrTokenExpired or domain.ErrTokenMalformed.
func (i *TokenIssuer) Verify(token string) (domain.Identity, error) {
	claims, err := i.signer.Verify(token)
	if err != nil {
		if domain.KindOf(err) == domain.KindToken {
			return domain.Identity{}, err
		}
		return domain.Identity{}, domain.ErrTokenMalformed
	}
	if claims.Subject == "" || claims.Username == "" {
		return domain.Identity{}, domain.ErrTokenMalformed
	}
	return domain.Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
