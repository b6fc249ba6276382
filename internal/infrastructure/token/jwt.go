// Package token signs and verifies bearer tokens as HS256 JWTs.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HS256Signer implements ports.TokenSigner with a shared secret.
type HS256Signer struct {
	secret []byte
	now    func() time.Time
}

func NewHS256Signer(secret string) *HS256Signer {
	return &HS256Signer{secret: []byte(secret), now: time.Now}
}

func (s *HS256Signer) Sign(c ports.TokenClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.ID,
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Username: c.Username,
		Role:     c.Role,
	})
	return t.SignedString(s.secret)
}

// Verify parses and checks a token. Expired tokens yield
// domain.ErrTokenExpired; anything else wrong yields domain.ErrTokenMalformed.
func (s *HS256Signer) Verify(tokenString string) (ports.TokenClaims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrTokenExpired
		}
		return ports.TokenClaims{}, domain.ErrTokenMalformed
	}
	if !tkn.Valid {
		return ports.TokenClaims{}, domain.ErrTokenMalformed
	}

	out := ports.TokenClaims{
		ID:       claims.ID,
		Subject:  claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
