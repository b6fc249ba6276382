package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// SessionService wires login and registration to token issuance.
type SessionService struct {
	verifier *CredentialVerifier
	users    ports.UserService
	repo     ports.UserRepository
	tokens   ports.TokenIssuer
	audit    ports.AuditRecorder // optional
	log      zerolog.Logger
	now      func() time.Time
}

func NewSessionService(
	verifier *CredentialVerifier,
	users ports.UserService,
	repo ports.UserRepository,
	tokens ports.TokenIssuer,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		verifier: verifier,
		users:    users,
		repo:     repo,
		tokens:   tokens,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// Login authenticates the pair, refreshes lastLogin and issues a token.
// Every failure, whatever its cause, is reported as
// domain.ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, username, password string) (*ports.SessionResult, error) {
	user, err := s.verifier.Authenticate(ctx, username, password)
	if err != nil {
		if domain.KindOf(err) != domain.KindAuth {
			s.log.Error().Err(err).Msg("login: authenticate")
		}
		s.record(domain.EventLoginFailed, "", username)
		return nil, domain.ErrInvalidCredentials
	}

	// Only lastLogin is written, so an update that landed after
	// authentication is kept.
	saved, err := s.repo.TouchLastLogin(ctx, user.ID, s.now().UTC())
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("login: persist last login")
		s.record(domain.EventLoginFailed, user.ID, username)
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(domain.IdentityOf(saved))
	if err != nil {
		s.log.Error().Err(err).Str("user_id", saved.ID).Msg("login: issue token")
		s.record(domain.EventLoginFailed, saved.ID, username)
		return nil, domain.ErrInvalidCredentials
	}

	s.log.Info().Str("user_id", saved.ID).Msg("login succeeded")
	s.record(domain.EventLoginSucceeded, saved.ID, saved.Username)
	return &ports.SessionResult{User: saved, Token: token}, nil
}

// Register creates the user and issues a token for it.
func (s *SessionService) Register(ctx context.Context, in ports.CreateUserInput) (*ports.SessionResult, error) {
	user, err := s.users.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(domain.IdentityOf(user))
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}
	return &ports.SessionResult{User: user, Token: token}, nil
}

func (s *SessionService) record(typ domain.AuthEventType, userID, username string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.AuthEvent{Type: typ, UserID: userID, Username: username})
}
