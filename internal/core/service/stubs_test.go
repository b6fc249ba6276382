package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

// stubUserRepo mirrors the Mongo repository: unique username and email,
// store-assigned ids and timestamps, conditional updates, copies in and out.
type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	seq     int
	clock   time.Time
	findErr error // if set, every lookup returns this error
	saveErr error // if set, every write returns this error
	saves   int   // writes attempted, Save and TouchLastLogin alike
	deletes int

	// afterRead, when set, runs once right after the next successful
	// lookup returns its copy, before the caller can act on it.
	afterRead func()
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users: make(map[string]*domain.User),
		clock: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *stubUserRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *stubUserRepo) read(lookup func() (*domain.User, error)) (*domain.User, error) {
	r.mu.Lock()
	u, err := lookup()
	hook := r.afterRead
	if err == nil {
		r.afterRead = nil
	}
	r.mu.Unlock()
	if err == nil && hook != nil {
		hook()
	}
	return u, err
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.read(func() (*domain.User, error) {
		if r.findErr != nil {
			return nil, r.findErr
		}
		u, ok := r.users[id]
		if !ok {
			return nil, domain.ErrUserNotFound
		}
		return u.Clone(), nil
	})
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.read(r.findBy(func(u *domain.User) bool { return u.Username == username }))
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.read(r.findBy(func(u *domain.User) bool { return u.Email == email }))
}

func (r *stubUserRepo) findBy(match func(*domain.User) bool) func() (*domain.User, error) {
	return func() (*domain.User, error) {
		if r.findErr != nil {
			return nil, r.findErr
		}
		for _, u := range r.users {
			if match(u) {
				return u.Clone(), nil
			}
		}
		return nil, domain.ErrUserNotFound
	}
}

func (r *stubUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.findBy(func(u *domain.User) bool { return u.Email == email })()
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubUserRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return false, r.findErr
	}
	_, ok := r.users[id]
	return ok, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return nil, r.saveErr
	}

	stored := user.Clone()
	if stored.ID != "" {
		current, ok := r.users[stored.ID]
		if !ok {
			return nil, domain.ErrUserNotFound
		}
		if !current.UpdatedAt.Equal(user.UpdatedAt) {
			return nil, domain.ErrStaleUser
		}
		stored.CreatedAt = current.CreatedAt
		stored.LastLogin = current.LastLogin
	}

	for id, other := range r.users {
		if id == stored.ID {
			continue
		}
		if other.Username == stored.Username {
			return nil, domain.ErrUsernameTaken
		}
		if other.Email == stored.Email {
			return nil, domain.ErrEmailTaken
		}
	}

	now := r.tick()
	if stored.ID == "" {
		r.seq++
		stored.ID = fmt.Sprintf("u-%d", r.seq)
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.users[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	current, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	ll := at
	current.LastLogin = &ll
	current.UpdatedAt = r.tick()
	return current.Clone(), nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// seed stores a user directly, bypassing the service.
func (r *stubUserRepo) seed(username, email, password string) *domain.User {
	u, err := r.Save(context.Background(), &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "hashed:" + password,
		Role:         domain.RoleUser,
		Active:       true,
	})
	if err != nil {
		panic(err)
	}
	r.saves = 0
	return u
}

// ---------------------------------------------------------------------------
// Other stubs
// ---------------------------------------------------------------------------

// stubHasher prefixes instead of hashing so tests can read hashes.
type stubHasher struct {
	hashErr  error
	verified []string // hashes passed to Verify, in order
}

func (h *stubHasher) Hash(plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (h *stubHasher) Verify(plaintext, hash string) bool {
	h.verified = append(h.verified, hash)
	return strings.TrimPrefix(hash, "hashed:") == plaintext && strings.HasPrefix(hash, "hashed:")
}

// stubLocker holds claims in memory.
type stubLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	acquired []string
}

func newStubLocker() *stubLocker {
	return &stubLocker{held: make(map[string]bool)}
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

// stubAudit collects recorded events.
type stubAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *stubAudit) Record(e domain.AuthEvent) {
	a.mu.Lock()
	a.events = append(a.events, e)
	a.mu.Unlock()
}

func (a *stubAudit) types() []domain.AuthEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventType, len(a.events))
	for i, e := range a.events {
		out[i] = e.Type
	}
	return out
}

// stubSigner encodes claims as a readable string.
type stubSigner struct {
	signErr   error
	verifyErr error
	last      ports.TokenClaims
	claims    map[string]ports.TokenClaims
}

func newStubSigner() *stubSigner {
	return &stubSigner{claims: make(map[string]ports.TokenClaims)}
}

func (s *stubSigner) Sign(c ports.TokenClaims) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	s.last = c
	tok := "tok:" + c.ID
	s.claims[tok] = c
	return tok, nil
}

func (s *stubSigner) Verify(token string) (ports.TokenClaims, error) {
	if s.verifyErr != nil {
		return ports.TokenClaims{}, s.verifyErr
	}
	c, ok := s.claims[token]
	if !ok {
		return ports.TokenClaims{}, domain.ErrTokenMalformed
	}
	return c, nil
}
