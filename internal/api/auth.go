package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

// User is an account as the backend describes it.
type User struct {
	ID        string    `json:"_id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a seller account.
type RegisterRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService handles account sessions.
type AuthService struct {
	client *Client
}

var validate = validator.New()

func validationError(err error) error {
	return &Error{Kind: KindValidation, Message: err.Error()}
}

// Login authenticates as role and stores the issued session.
func (s *AuthService) Login(ctx context.Context, role session.Role, req LoginRequest) (*User, error) {
	if !role.Valid() {
		return nil, validationError(session.ErrInvalidRole)
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var out loginResponse
	if err := s.client.postPublic(ctx, pathf("/%s/login", string(role)), req, &out); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Kind == KindAuthExpired {
			// No session was involved; a 401 here means bad credentials.
			apiErr.Kind = KindValidation
		}
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Kind: KindServer, Message: "login response carried no access token"}
	}

	err := s.client.session.Login(ctx, session.Session{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		Role:         role,
	})
	if err != nil {
		return nil, &Error{Kind: KindServer, Message: "failed to store session", Err: err}
	}
	return &out.User, nil
}

// Register creates a seller account. It does not log in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	var out User
	if err := s.client.postPublic(ctx, pathf("/%s/register", string(session.RoleUser)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the backend and clears it locally. The local
// session is always cleared; a backend failure other than an already expired
// session is still returned.
func (s *AuthService) Logout(ctx context.Context) error {
	role, err := s.client.session.Role(ctx)
	if errors.Is(err, session.ErrNoSession) {
		// No role to address the backend with; drop any leftover tokens.
		if err := s.client.session.Clear(ctx); err != nil {
			return &Error{Kind: KindServer, Message: "failed to clear session", Err: err}
		}
		return nil
	}
	if err != nil {
		return &Error{Kind: KindServer, Message: "failed to read session", Err: err}
	}

	remoteErr := s.client.post(ctx, pathf("/%s/logout", string(role)), nil, nil)
	if err := s.client.session.Clear(ctx); err != nil {
		return &Error{Kind: KindServer, Message: "failed to clear session", Err: err}
	}
	if remoteErr != nil && !errors.Is(remoteErr, ErrAuthExpired) {
		return remoteErr
	}
	return nil
}

// CurrentUser returns the logged-in account.
func (s *AuthService) CurrentUser(ctx context.Context) (*User, error) {
	role, err := s.client.session.Role(ctx)
	if err != nil {
		return nil, &Error{Kind: KindAuthExpired, Message: "not logged in", Err: err}
	}
	var out User
	if err := s.client.get(ctx, pathf("/%s/current-user", string(role)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
