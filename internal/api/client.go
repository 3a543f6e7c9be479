// Package api is the client for the scrap marketplace backend.
//
// Every request goes through a session.Transport, so an expired access token
// is refreshed and the request resent once without the caller noticing.
// Every call returns its result or an *Error whose Kind tells the caller how
// to react.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Raj-venom/scrap-dai-client/internal/media"
	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

const (
	// DefaultTimeout bounds each request, including one refresh and resend.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "scrapdai-client/1.0"
)

// Client is the backend API client.
//
//	sm := session.NewManager(store, baseURL)
//	client := api.NewClient(baseURL, sm)
//	cats, err := client.Catalog.ListCategories(ctx)
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	base       http.RoundTripper
	timeout    time.Duration
	session    *session.Manager
	media      media.Options
	logger     *slog.Logger

	// publicClient sends requests that must not carry credentials.
	publicClient *http.Client

	// Services
	Auth          *AuthService
	Catalog       *CatalogService
	Orders        *OrdersService
	Pickups       *PickupsService
	Notifications *NotificationsService
}

// Option configures the client.
type Option func(*Client)

// WithBaseTransport sets the transport under the credential layer.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMediaOptions controls how order images are re-encoded before upload.
func WithMediaOptions(o media.Options) Option {
	return func(c *Client) {
		c.media = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, sm *session.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		session:   sm,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: session.NewTransport(sm, c.base),
	}
	c.publicClient = &http.Client{
		Timeout:   c.timeout,
		Transport: c.base,
	}

	c.Auth = &AuthService{client: c}
	c.Catalog = &CatalogService{client: c}
	c.Orders = &OrdersService{client: c}
	c.Pickups = &PickupsService{client: c}
	c.Notifications = &NotificationsService{client: c}

	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session manager the client authenticates with.
func (c *Client) Session() *session.Manager {
	return c.session
}
