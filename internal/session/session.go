// Package session owns the device's stored credentials and makes outgoing
// backend requests self-healing against access-token expiry.
//
// Exactly one Session exists per installation. It is created by Login,
// rotated by Refresh and destroyed by Clear or by an irrecoverable refresh
// failure. Transport wires the attach/refresh/resend-once protocol into any
// http.Client.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Raj-venom/scrap-dai-client/internal/securestore"
)

const (
	// DefaultRefreshTimeout bounds a single refresh call.
	DefaultRefreshTimeout = 15 * time.Second

	refreshKey = "refresh"
)

// Role is the account type a session belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleCollector Role = "collector"
)

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleCollector:
		return RoleCollector, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleCollector
}

// Session holds the stored credentials.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         Role
}

// Manager reads and writes the Session in a secure store and performs
// token refresh. It is safe for concurrent use.
type Manager struct {
	store          securestore.Store
	baseURL        string
	httpClient     *http.Client
	refreshTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time

	group singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for refresh calls. It must not route
// through Transport.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithRefreshTimeout bounds each refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides the time source used by Status.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager over store. baseURL is the backend API root
// that hosts the role-scoped refresh endpoints.
func NewManager(store securestore.Store, baseURL string, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{Timeout: DefaultRefreshTimeout},
		refreshTimeout: DefaultRefreshTimeout,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login stores a freshly issued session, replacing any previous one.
func (m *Manager) Login(ctx context.Context, s Session) error {
	if !s.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, s.Role)
	}
	if s.AccessToken == "" {
		return errors.New("session: access token is required")
	}

	if err := m.store.Set(ctx, securestore.KeyRole, string(s.Role)); err != nil {
		return fmt.Errorf("store role: %w", err)
	}
	if s.RefreshToken != "" {
		if err := m.store.Set(ctx, securestore.KeyRefreshToken, s.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	} else if err := m.store.Delete(ctx, securestore.KeyRefreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if err := m.store.Set(ctx, securestore.KeyAccessToken, s.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}

	m.logger.Info("session created", slog.String("role", string(s.Role)))
	return nil
}

// Current returns the stored session or ErrNoSession when no access token
// is stored.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	access, err := m.lookup(ctx, securestore.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNoSession
	}
	refresh, err := m.lookup(ctx, securestore.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	role, err := m.lookup(ctx, securestore.KeyRole)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh, Role: Role(role)}, nil
}

// Role returns the stored role or ErrNoSession.
func (m *Manager) Role(ctx context.Context) (Role, error) {
	role, err := m.lookup(ctx, securestore.KeyRole)
	if err != nil {
		return "", err
	}
	r := Role(role)
	if !r.Valid() {
		return "", ErrNoSession
	}
	return r, nil
}

// Clear destroys the session.
func (m *Manager) Clear(ctx context.Context) error {
	err := m.store.Delete(ctx,
		securestore.KeyAccessToken,
		securestore.KeyRefreshToken,
		securestore.KeyRole,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("session cleared")
	return nil
}

// AttachCredentials sets the stored access token as a bearer credential on
// req and returns the token used. It is a no-op returning "" when no token
// is stored.
func (m *Manager) AttachCredentials(req *http.Request) (string, error) {
	token, err := m.lookup(req.Context(), securestore.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", nil
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	return token, nil
}

// Status describes the stored session without exposing tokens.
type Status struct {
	Role            Role      `json:"role,omitempty"`
	HasAccessToken  bool      `json:"has_access_token"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at,omitempty"`
	AccessExpired   bool      `json:"access_expired"`
}

// Status reports the current session state. The access token expiry is read
// from its JWT exp claim when present.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	access, err := m.lookup(ctx, securestore.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := m.lookup(ctx, securestore.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	role, err := m.lookup(ctx, securestore.KeyRole)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Role:            Role(role),
		HasAccessToken:  access != "",
		HasRefreshToken: refresh != "",
	}
	if exp, ok := AccessTokenExpiry(access); ok {
		st.AccessExpiresAt = exp
		st.AccessExpired = !m.now().Before(exp)
	}
	return st, nil
}

// lookup maps ErrNotFound to "".
func (m *Manager) lookup(ctx context.Context, key string) (string, error) {
	v, err := m.store.Get(ctx, key)
	if errors.Is(err, securestore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
