package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"storefront/internal/models"
)

// DefaultRevalidateTimeout bounds the bootstrap revalidation call so
// readiness can never deadlock on the network.
const DefaultRevalidateTimeout = 5 * time.Second

// SessionStore holds the current authenticated identity and runs the
// asynchronous token-revalidation protocol. A stored identity is
// published optimistically on bootstrap while revalidation runs in the
// background; only an explicit authorization failure clears it.
// Readiness flips to true exactly once, when revalidation settles or
// when no stored identity exists.
type SessionStore struct {
	endpoint          AuthEndpoint
	storage           SessionStorage
	revalidateTimeout time.Duration

	mu       sync.RWMutex
	identity *models.Identity
	token    string
	subs     map[int]func(*models.Identity)
	nextSub  int

	ready     chan struct{}
	readyOnce sync.Once

	// onExpired is invoked when revalidation reports the session is no
	// longer valid, so the UI can notify and redirect to login.
	onExpired func()
}

// NewSessionStore creates an empty session store. Call Bootstrap once
// at startup.
func NewSessionStore(endpoint AuthEndpoint, storage SessionStorage, revalidateTimeout time.Duration) *SessionStore {
	if revalidateTimeout <= 0 {
		revalidateTimeout = DefaultRevalidateTimeout
	}
	return &SessionStore{
		endpoint:          endpoint,
		storage:           storage,
		revalidateTimeout: revalidateTimeout,
		subs:              make(map[int]func(*models.Identity)),
		ready:             make(chan struct{}),
	}
}

// OnSessionExpired registers the callback invoked when a stored session
// turns out to be invalid. Must be called before Bootstrap.
func (s *SessionStore) OnSessionExpired(fn func()) {
	s.onExpired = fn
}

// Bootstrap reads any persisted identity and credential. With nothing
// stored the store is immediately ready and logged out. With stored
// state the identity is published right away and revalidated in the
// background with a bounded timeout; Bootstrap itself never blocks.
func (s *SessionStore) Bootstrap() {
	stored, err := s.storage.Load()
	if err != nil {
		log.Printf("Failed to load stored session, starting logged out: %v", err)
		if clearErr := s.storage.Clear(); clearErr != nil {
			log.Printf("Failed to clear corrupt session storage: %v", clearErr)
		}
		s.markReady()
		return
	}
	if stored == nil || stored.Token == "" {
		s.markReady()
		return
	}

	// Optimistic publish: trust the cached identity for immediate UI.
	identity := stored.Identity
	s.mu.Lock()
	s.identity = &identity
	s.token = stored.Token
	s.mu.Unlock()
	s.notify()

	go s.revalidate(stored.Token)
}

// revalidate settles the stored credential against the auth endpoint.
// Authorization failure clears the session; every other outcome
// (network error, timeout, server fault) keeps the optimistic identity,
// trading strict consistency for availability. Readiness flips in all
// cases.
func (s *SessionStore) revalidate(token string) {
	defer s.markReady()

	ctx, cancel := context.WithTimeout(context.Background(), s.revalidateTimeout)
	defer cancel()

	type result struct {
		identity *models.Identity
		err      error
	}
	done := make(chan result, 1)
	go func() {
		identity, err := s.endpoint.ValidateToken(ctx, token)
		done <- result{identity, err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Session revalidation timed out, keeping optimistic identity")
		return
	case res := <-done:
		switch {
		case res.err == nil:
			// Refresh in case the account changed server-side.
			s.mu.Lock()
			s.identity = res.identity
			s.mu.Unlock()
			s.persist()
			s.notify()
		case errors.Is(res.err, models.ErrAuthExpired):
			log.Printf("Session revalidation rejected credential, clearing session: %v", res.err)
			s.clearLocal()
			if s.onExpired != nil {
				s.onExpired()
			}
		default:
			log.Printf("Session revalidation failed (non-authoritative), keeping identity: %v", res.err)
		}
	}
}

// Login authenticates, stores identity plus credential, and publishes
// the identity.
func (s *SessionStore) Login(ctx context.Context, credentials models.Credentials) (models.Identity, error) {
	identity, token, err := s.endpoint.Login(ctx, credentials)
	if err != nil {
		return models.Identity{}, fmt.Errorf("login failed: %w", err)
	}

	s.mu.Lock()
	s.identity = &identity
	s.token = token
	s.mu.Unlock()
	s.persist()
	s.notify()
	s.markReady()
	return identity, nil
}

// Logout clears local state synchronously and best-effort invalidates
// the credential remotely. It always succeeds client-side; remote
// failures are logged, never surfaced.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	s.clearLocal()

	if token != "" {
		if err := s.endpoint.InvalidateToken(ctx, token); err != nil {
			log.Printf("Remote logout failed, local state already cleared: %v", err)
		}
	}
}

// UpdateIdentity merges non-nil fields into the current identity and
// republishes plus persists it. A logged-out store ignores the update.
func (s *SessionStore) UpdateIdentity(update models.IdentityUpdate) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return
	}
	if update.Name != nil {
		s.identity.Name = *update.Name
	}
	if update.Email != nil {
		s.identity.Email = *update.Email
	}
	if update.AvatarRef != nil {
		s.identity.AvatarRef = *update.AvatarRef
	}
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// Identity returns a copy of the current identity, or nil when logged
// out.
func (s *SessionStore) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Token returns the current credential token, empty when logged out.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsLoggedIn reports whether an identity is currently published.
func (s *SessionStore) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Role returns the current role, empty when logged out.
func (s *SessionStore) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Role
}

// IsReady reports whether the initial auth check has settled. A false
// value means "unknown", never "logged out" -- callers must wait.
func (s *SessionStore) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// AwaitReady blocks until the store is ready or the context is done.
func (s *SessionStore) AwaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers an identity observer. It is invoked with a copy
// of the identity (nil when logged out) on every change. The returned
// function removes the subscription.
func (s *SessionStore) Subscribe(fn func(*models.Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *SessionStore) clearLocal() {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.storage.Clear(); err != nil {
		log.Printf("Failed to clear session storage: %v", err)
	}
	s.notify()
}

func (s *SessionStore) persist() {
	s.mu.RLock()
	identity := s.identity
	token := s.token
	s.mu.RUnlock()
	if identity == nil {
		return
	}

	if err := s.storage.Save(StoredSession{Identity: *identity, Token: token}); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
}

func (s *SessionStore) notify() {
	s.mu.RLock()
	identity := s.identity
	fns := make([]func(*models.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		if identity == nil {
			fn(nil)
		} else {
			copied := *identity
			fn(&copied)
		}
	}
}
