// Package session holds the process-wide authentication state and persists it field by field.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/tablebook-go/internal/storage"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

// TokenStore is the single source of truth for the current session.
// Reads never block on storage. Writes are serialised so memory and storage
// always end up holding the same session.
type TokenStore struct {
	mu      sync.RWMutex
	session types.Session

	// writeMu orders whole writes: the memory update and every persisted field
	writeMu sync.Mutex

	backend storage.Store
	jar     *CookieJar
	logger  types.Logger
}

// NewTokenStore creates an empty store. A nil backend keeps the session in memory only.
func NewTokenStore(backend storage.Store, logger types.Logger) *TokenStore {
	if backend == nil {
		backend = storage.NewMemoryStore()
	}
	return &TokenStore{
		backend: backend,
		jar:     NewCookieJar(backend, logger),
		logger:  logger,
	}
}

// Get returns the current session
func (s *TokenStore) Get() types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token returns the current access token, empty when unauthenticated
func (s *TokenStore) Token() string {
	return s.Get().AccessToken
}

// CookieJar returns the jar holding the refresh cookie, persisted next to the session
func (s *TokenStore) CookieJar() *CookieJar {
	return s.jar
}

// Set replaces the session and persists each field, removing keys for empty fields
func (s *TokenStore) Set(ctx context.Context, sess types.Session) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.set(ctx, sess)
}

// SetToken replaces only the access token, keeping role and email
func (s *TokenStore) SetToken(ctx context.Context, token string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess := s.Get()
	sess.AccessToken = token
	sess.ExpiresAt = ExpiresAt(token)
	s.set(ctx, sess)
}

// ReplaceToken swaps old for token only while the session still holds old.
// It reports whether the swap happened.
func (s *TokenStore) ReplaceToken(ctx context.Context, old, token string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess := s.Get()
	if sess.AccessToken != old {
		return false
	}
	sess.AccessToken = token
	sess.ExpiresAt = ExpiresAt(token)
	s.set(ctx, sess)
	return true
}

// Clear logs the session out and forgets the refresh cookie
func (s *TokenStore) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.set(ctx, types.Session{})
	s.jar.Reset(ctx)
}

// Load rehydrates the session and the refresh cookie from storage
func (s *TokenStore) Load(ctx context.Context) types.Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess := types.Session{
		AccessToken: s.read(ctx, types.TokenKey),
		UserType:    types.UserType(s.read(ctx, types.UserTypeKey)),
		Email:       s.read(ctx, types.EmailKey),
	}
	if sess.AccessToken != "" {
		sess.ExpiresAt = ExpiresAt(sess.AccessToken)
		s.reconcileEmail(&sess)
	}
	s.jar.Load(ctx)

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if s.logger != nil && sess.Authenticated() {
		s.logger.Info("Session loaded", "email", sess.Email, "userType", sess.UserType)
	}
	return sess
}

// reconcileEmail lets the token's sub claim win over a missing or stale stored email
func (s *TokenStore) reconcileEmail(sess *types.Session) {
	sub := Subject(sess.AccessToken)
	if sub == "" || strings.EqualFold(sub, sess.Email) {
		return
	}
	if sess.Email != "" && s.logger != nil {
		s.logger.Warn("Stored email does not match token subject", "stored", sess.Email, "subject", sub)
	}
	sess.Email = sub
}

// set must be called with writeMu held
func (s *TokenStore) set(ctx context.Context, sess types.Session) {
	if sess.AccessToken != "" && sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = ExpiresAt(sess.AccessToken)
	}
	if sess.AccessToken == "" {
		sess.ExpiresAt = time.Time{}
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	s.persist(ctx, types.TokenKey, sess.AccessToken)
	s.persist(ctx, types.UserTypeKey, string(sess.UserType))
	s.persist(ctx, types.EmailKey, sess.Email)
}

func (s *TokenStore) persist(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.backend.Remove(ctx, key)
	} else {
		err = s.backend.Set(ctx, key, value)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("Failed to persist session field", "key", key, "error", err)
	}
}

func (s *TokenStore) read(ctx context.Context, key string) string {
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to read session field", "key", key, "error", err)
		}
		return ""
	}
	if !ok {
		return ""
	}
	return v
}
