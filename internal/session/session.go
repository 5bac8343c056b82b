// package session holds the authenticated identity for the running client.
//
// The [Store] is the single owner of the token, username and admin flag.
// Every other component reads auth state through it and reacts to its
// teardown hooks; nothing else mutates session fields.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// Gateway is the slice of the API client the store needs for login and
// token re-validation.
type Gateway interface {
	PostJSON(ctx context.Context, path string, body, out any) error
	GetJSON(ctx context.Context, path string, out any) error
}

// Keeper persists a session across process restarts. Only consulted when
// persistence is enabled in configuration.
type Keeper interface {
	SaveSession(s models.Session) error
	LoadSession() (models.Session, error)
	ClearSession() error
}

// Store owns the client's session state.
type Store struct {
	mu      sync.Mutex
	current models.Session

	gateway Gateway
	keeper  Keeper
	persist bool
	logger  *log.Logger

	// teardowns run on both logout and invalidation: cancel pollers,
	// clear caches, drop the active job.
	teardowns     []func()
	onInvalidated []func()
}

// NewStore creates a session store. keeper may be nil when persistence is
// disabled; the gateway is attached separately because it needs the store
// for token lookup.
func NewStore(keeper Keeper, persist bool, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{keeper: keeper, persist: persist, logger: logger}
}

// SetGateway attaches the API gateway used for login and restore.
func (s *Store) SetGateway(gw Gateway) {
	s.gateway = gw
}

// OnTeardown registers a hook run whenever the session ends, by logout or by
// server-side invalidation.
func (s *Store) OnTeardown(fn func()) {
	s.teardowns = append(s.teardowns, fn)
}

// OnInvalidated registers a hook run only when the server rejects a
// previously-valid session mid-use.
func (s *Store) OnInvalidated(fn func()) {
	s.onInvalidated = append(s.onInvalidated, fn)
}

// Login authenticates against POST /login and atomically replaces the
// session on success.
func (s *Store) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrValidation)
	}
	if s.gateway == nil {
		return fmt.Errorf("%w: gateway not attached", shared.ErrServiceUnavailable)
	}

	var resp models.LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := s.gateway.PostJSON(ctx, "/login", body, &resp); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.mu.Lock()
	s.current = models.Session{Token: resp.Token, Username: resp.User, IsAdmin: resp.IsAdmin}
	snapshot := s.current
	s.mu.Unlock()

	s.logger.Info("logged in", "user", snapshot.Username, "admin", snapshot.IsAdmin)

	if s.persist && s.keeper != nil {
		if err := s.keeper.SaveSession(snapshot); err != nil {
			s.logger.Warn("failed to persist session", "err", err)
		}
	}

	return nil
}

// Restore re-validates a persisted token against GET /me. When persistence
// is disabled the store always starts empty and Restore fails with
// [shared.ErrNotAuthenticated].
func (s *Store) Restore(ctx context.Context) error {
	if !s.persist || s.keeper == nil {
		return shared.ErrNotAuthenticated
	}
	if s.gateway == nil {
		return fmt.Errorf("%w: gateway not attached", shared.ErrServiceUnavailable)
	}

	saved, err := s.keeper.LoadSession()
	if err != nil || saved.Token == "" {
		return shared.ErrNotAuthenticated
	}

	s.mu.Lock()
	s.current = saved
	s.mu.Unlock()

	var me models.MeResponse
	if err := s.gateway.GetJSON(ctx, "/me", &me); err != nil {
		s.clear()
		if clearErr := s.keeper.ClearSession(); clearErr != nil {
			s.logger.Warn("failed to clear persisted session", "err", clearErr)
		}
		return fmt.Errorf("%w: token expired or invalid", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	s.current.Username = me.User
	s.current.IsAdmin = me.IsAdmin
	s.mu.Unlock()

	return nil
}

// Logout clears the session unconditionally and runs every teardown hook.
// Callers may treat the cleared state as immediately authoritative.
func (s *Store) Logout() {
	s.clear()
	s.clearKeeper()
	for _, fn := range s.teardowns {
		fn()
	}
	s.logger.Info("logged out")
}

// Invalidate performs the logout reaction in response to a server-side 401.
// Invalidation handlers fire exactly once per live session; a store with no
// token ignores the call.
func (s *Store) Invalidate() {
	s.mu.Lock()
	had := s.current.Authenticated()
	s.current = models.Session{}
	s.mu.Unlock()

	if !had {
		return
	}

	s.clearKeeper()
	for _, fn := range s.teardowns {
		fn()
	}
	for _, fn := range s.onInvalidated {
		fn()
	}
	s.logger.Warn("session invalidated by server")
}

// Token returns the current bearer token, empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Token
}

// Username returns the authenticated username.
func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Username
}

// IsAdmin reports whether the session has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.IsAdmin
}

// Authenticated reports whether a session is live.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Authenticated()
}

// Current returns a copy of the session.
func (s *Store) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) clear() {
	s.mu.Lock()
	s.current = models.Session{}
	s.mu.Unlock()
}

func (s *Store) clearKeeper() {
	if s.keeper == nil {
		return
	}
	if err := s.keeper.ClearSession(); err != nil {
		s.logger.Warn("failed to clear persisted session", "err", err)
	}
}
