// Package store holds the in-memory session state machine: the single
// source of truth for "who is signed in", and the only component allowed to
// mutate it. States are anonymous, loading, authenticated, and error; in
// every reachable state IsAuthenticated holds exactly when both token and
// user are present.
package store

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"al-ilm/companion/internal/credstore"
	"al-ilm/companion/internal/security"
	sessiondomain "al-ilm/companion/internal/session/domain"
	userdomain "al-ilm/companion/internal/user/domain"
)

// logoutTimeout bounds the best-effort server-side invalidation on logout.
const logoutTimeout = 5 * time.Second

// Authenticator is the slice of the auth gateway the store needs.
type Authenticator interface {
	LoginWithPassword(ctx context.Context, email, password string) (*sessiondomain.AuthGrant, error)
	Logout(ctx context.Context) error
}

// CredentialReader reads the persisted session record for startup reconciliation.
type CredentialReader interface {
	GetAuthData(ctx context.Context) credstore.AuthData
}

// Listener observes session transitions. Listeners run synchronously after
// each transition with a copy of the new state; the registered persistence
// listener mirrors transitions into the credential store.
type Listener = func(sessiondomain.Session)

// Store is the session state machine.
type Store struct {
	gw    Authenticator
	creds CredentialReader
	nowF  func() time.Time

	flight singleflight.Group

	mu        sync.RWMutex
	session   sessiondomain.Session
	listeners []Listener
}

// New returns a Store in the anonymous state.
func New(gw Authenticator, creds CredentialReader) *Store {
	return &Store{gw: gw, creds: creds, nowF: time.Now}
}

// Current returns a copy of the session state.
func (s *Store) Current() sessiondomain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.session)
}

// Token returns the current token, or "" when anonymous. Satisfies the
// request wrapper's session binding.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// OnChange registers a transition listener.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Login exchanges email/password for a session. On success the store is
// authenticated; on failure LastError is set, the store is anonymous, and
// the error is returned for the caller to surface. Concurrent Login calls
// collapse into a single outstanding exchange sharing one result.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.transition(func(sess *sessiondomain.Session) {
		sess.IsLoading = true
		sess.LastError = ""
	})

	_, err, _ := s.flight.Do("login", func() (any, error) {
		grant, err := s.gw.LoginWithPassword(ctx, email, password)
		countLogin(ctx, err == nil)
		if err != nil {
			s.transition(func(sess *sessiondomain.Session) {
				sess.Token = ""
				sess.User = nil
				sess.IsAuthenticated = false
				sess.IsLoading = false
				sess.LastError = err.Error()
			})
			return nil, err
		}
		s.commitGrant(grant)
		return grant, nil
	})
	return err
}

// Logout ends the session. The server-side invalidation is best-effort and
// bounded; the local teardown is unconditional, so Logout always leaves the
// store anonymous. Calling it while already anonymous is a no-op transition.
func (s *Store) Logout(ctx context.Context) {
	s.transition(func(sess *sessiondomain.Session) {
		sess.IsLoading = true
	})

	if s.Token() != "" && s.gw != nil {
		remoteCtx, cancel := context.WithTimeout(ctx, logoutTimeout)
		if err := s.gw.Logout(remoteCtx); err != nil {
			log.Printf("session: server-side logout failed (ignored): %v", err)
		}
		cancel()
	}

	s.clear()
}

// ForceLogout clears the session locally without a network round trip. Used
// by the request wrapper when a call comes back 401 and by the bootstrap
// critical-failure path.
func (s *Store) ForceLogout(ctx context.Context) {
	s.clear()
}

// SetToken commits a session established elsewhere (e.g. the bootstrap's
// device login) without a network round trip.
func (s *Store) SetToken(token string, user userdomain.UserProfile) {
	s.transition(func(sess *sessiondomain.Session) {
		sess.Token = token
		u := user
		sess.User = &u
		sess.IsAuthenticated = true
		sess.IsLoading = false
		sess.LastError = ""
	})
}

// CheckAuthStatus reconciles persisted state with the in-memory session at
// startup: a persisted token+user pair that has not expired is restored;
// anything else leaves the store anonymous (persisted state untouched).
func (s *Store) CheckAuthStatus(ctx context.Context) {
	if s.creds == nil {
		s.clear()
		return
	}
	data := s.creds.GetAuthData(ctx)
	if data.Token != "" && data.User != nil && !security.Expired(data.Token, s.nowF()) {
		s.SetToken(data.Token, *data.User)
		return
	}
	s.clear()
}

// ClearError clears LastError without touching any other field.
func (s *Store) ClearError() {
	s.transition(func(sess *sessiondomain.Session) {
		sess.LastError = ""
	})
}

func (s *Store) commitGrant(grant *sessiondomain.AuthGrant) {
	s.SetToken(grant.Token, grant.User)
}

func (s *Store) clear() {
	s.transition(func(sess *sessiondomain.Session) {
		*sess = sessiondomain.Session{}
	})
}

// transition applies mutate under the lock, then notifies listeners with a
// copy of the new state outside the lock.
func (s *Store) transition(mutate func(*sessiondomain.Session)) {
	s.mu.Lock()
	mutate(&s.session)
	snapshot := clone(s.session)
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func countLogin(ctx context.Context, success bool) {
	counter, err := otel.Meter("companion.session").Int64Counter("session.logins")
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func clone(sess sessiondomain.Session) sessiondomain.Session {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return sess
}
