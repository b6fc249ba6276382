package ports

import (
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// TokenClaims is the claim set carried by a bearer token.
type TokenClaims struct {
	ID        string
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenSigner signs and verifies claim sets. Verify returns
// domain.ErrTokenExpired or domain.ErrTokenMalformed.
type TokenSigner interface {
	Sign(claims TokenClaims) (string, error)
	Verify(token string) (TokenClaims, error)
}

// TokenVerifier resolves a bearer token to the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// TokenIssuer issues bearer tokens for verified identities.
type TokenIssuer interface {
	Issue(identity domain.Identity) (string, error)
}
