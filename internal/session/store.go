// Package session is the client-resident session cache: it remembers the
// authenticated principal across process restarts and reconciles itself
// against the server's introspection endpoint on demand. It is consumed by
// anything that renders or gates on the current user -- never by the edge
// gate, which trusts only the token.
//
// Initialization order is explicit: construct the store, optionally call
// Rehydrate exactly once, then serve. There is no implicit rehydration on
// construction; a second Rehydrate call is a no-op.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/keyxmakerx/gatehouse/internal/config"
	"github.com/keyxmakerx/gatehouse/internal/gate"
	"github.com/keyxmakerx/gatehouse/internal/plugins/auth"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// introspectPath is the server endpoint CheckToken reconciles against.
const introspectPath = "/api/auth/me"

// defaultCheckTimeout bounds the introspection round trip so the store can
// never stay in a loading state indefinitely.
const defaultCheckTimeout = 10 * time.Second

// State is a point-in-time snapshot of the session. Callers get copies;
// mutating a snapshot has no effect on the store.
type State struct {
	User            *auth.User
	IsAuthenticated bool
	IsLoading       bool
	Err             error
}

// Config configures a Store.
type Config struct {
	// BaseURL is the server origin, e.g. "https://app.example.com".
	BaseURL string

	// Persister stores the {user, isAuthenticated} slice of state across
	// restarts. Nil disables persistence entirely.
	Persister Persister

	// HTTPClient is used for CheckToken. When nil, a client with an
	// in-memory cookie jar and defaultCheckTimeout is created.
	HTTPClient *http.Client

	// CheckTimeout overrides the introspection timeout. Zero keeps the default.
	CheckTimeout time.Duration
}

// Store is the process-wide session manager. All mutations are synchronous
// whole-state replacements under a single mutex (last write wins); the only
// asynchronous operation is CheckToken's network round trip. Construct one
// per process and share it.
type Store struct {
	mu    sync.Mutex
	state State

	persister  Persister
	rehydrated bool

	client  *http.Client
	baseURL *url.URL
	timeout time.Duration
}

// NewStoreFromConfig builds a Store from application configuration: the
// server's base URL, a file persister at the configured path, and the
// configured reconciliation timeout.
func NewStoreFromConfig(cfg *config.Config) (*Store, error) {
	persister, err := NewFilePersister(cfg.Session.StorePath)
	if err != nil {
		return nil, err
	}
	return NewStore(Config{
		BaseURL:      cfg.BaseURL,
		Persister:    persister,
		CheckTimeout: cfg.Session.CheckTimeout,
	})
}

// NewStore creates a session store for the given server.
func NewStore(cfg Config) (*Store, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client = &http.Client{Jar: jar}
	}

	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}

	return &Store{
		persister: cfg.Persister,
		client:    client,
		baseURL:   base,
		timeout:   timeout,
	}, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the current principal, or nil.
func (s *Store) User() *auth.User {
	return s.Snapshot().User
}

// IsAuthenticated reports whether a principal is present.
func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated
}

// Login records a successful authentication.
func (s *Store) Login(user *auth.User) {
	s.mu.Lock()
	s.state = State{User: user, IsAuthenticated: true}
	s.persistLocked()
	s.mu.Unlock()
}

// Logout clears the principal and expires both auth cookies in the client's
// cookie jar so subsequent requests carry no credentials.
func (s *Store) Logout() {
	s.mu.Lock()
	s.state = State{}
	s.persistLocked()
	s.mu.Unlock()

	s.expireCookies()
}

// SetUser replaces the principal. A nil user also clears IsAuthenticated.
func (s *Store) SetUser(user *auth.User) {
	s.mu.Lock()
	s.state.User = user
	s.state.IsAuthenticated = user != nil
	s.state.Err = nil
	s.persistLocked()
	s.mu.Unlock()
}

// SetLoading sets the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.state.IsLoading = loading
	s.mu.Unlock()
}

// SetError records an error and ends any loading state.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.state.Err = err
	s.state.IsLoading = false
	s.mu.Unlock()
}

// Rehydrate restores the persisted {user, isAuthenticated} slice of state.
// Call it exactly once during startup, before serving; further calls are
// no-ops. Loading and error flags always start false/nil -- they are never
// restored.
func (s *Store) Rehydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rehydrated {
		return nil
	}
	s.rehydrated = true

	if s.persister == nil {
		return nil
	}

	persisted, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("rehydrating session: %w", err)
	}
	if persisted == nil {
		return nil
	}

	s.state = State{
		User:            persisted.User,
		IsAuthenticated: persisted.IsAuthenticated,
	}
	return nil
}

// CheckToken reconciles the cached principal against the server's
// introspection endpoint. It never returns an error -- every outcome
// resolves into state:
//
//   - server says unauthenticated (any non-2xx): principal cleared, no error
//     recorded, this is the normal "not logged in" case
//   - server returns the principal: authenticated state replaced with it
//   - transport failure (including timeout): principal cleared and Err set
//
// IsLoading is true for the duration and false afterwards on every path.
// Concurrent calls are tolerated; the last writer wins.
func (s *Store) CheckToken(ctx context.Context) {
	s.SetLoading(true)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := s.baseURL.JoinPath(introspectPath).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		s.resolveCheck(nil, err)
		return
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.resolveCheck(nil, fmt.Errorf("checking session: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Simply not logged in. Not a failure.
		s.resolveCheck(nil, nil)
		return
	}

	var user auth.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		s.resolveCheck(nil, fmt.Errorf("decoding session principal: %w", err))
		return
	}

	s.resolveCheck(&user, nil)
}

// resolveCheck writes CheckToken's outcome as one atomic state replacement.
func (s *Store) resolveCheck(user *auth.User, err error) {
	s.mu.Lock()
	s.state = State{
		User:            user,
		IsAuthenticated: user != nil,
		IsLoading:       false,
		Err:             err,
	}
	s.persistLocked()
	s.mu.Unlock()
}

// --- Permission predicates over the current principal ---

// Evaluator returns a permission evaluator for the cached principal, or nil
// when no one is logged in (a nil evaluator fails every check).
func (s *Store) Evaluator() *rbac.Evaluator {
	user := s.User()
	if user == nil {
		return nil
	}
	return rbac.NewEvaluator(user.Role, user.Permissions)
}

// Can reports whether the current principal holds the given permission, or
// ALL of them when more than one is listed.
func (s *Store) Can(permissions ...string) bool {
	return s.Evaluator().Can(permissions...)
}

// HasAnyPermission reports whether the current principal holds at least one
// of the given permissions.
func (s *Store) HasAnyPermission(permissions ...string) bool {
	return s.Evaluator().HasAnyPermission(permissions...)
}

// IsRole reports whether the current principal has exactly the given role.
func (s *Store) IsRole(role rbac.Role) bool {
	return s.Evaluator().IsRole(role)
}

// --- internals ---

// persistLocked saves the persisted slice of state. Persistence failures are
// logged, never surfaced: the cache is best-effort, the server is truth.
// Caller holds s.mu.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	err := s.persister.Save(persistedState{
		User:            s.state.User,
		IsAuthenticated: s.state.IsAuthenticated,
	})
	if err != nil {
		slog.Warn("persisting session state failed", slog.Any("error", err))
	}
}

// expireCookies removes the bearer and refresh cookies from the client's
// jar by setting an already-expired replacement for each.
func (s *Store) expireCookies() {
	if s.client.Jar == nil {
		return
	}
	expired := time.Unix(0, 0)
	s.client.Jar.SetCookies(s.baseURL, []*http.Cookie{
		{Name: gate.TokenCookie, Value: "", Path: "/", Expires: expired, MaxAge: -1},
		{Name: gate.RefreshTokenCookie, Value: "", Path: "/", Expires: expired, MaxAge: -1},
	})
}
