package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindAuthExpired Kind = "auth_expired"
	KindForbidden   Kind = "forbidden"
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindServer      Kind = "server"
)

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrNetwork     = errors.New("api: network error")
	ErrAuthExpired = errors.New("api: session expired, log in again")
	ErrForbidden   = errors.New("api: forbidden")
	ErrValidation  = errors.New("api: request rejected")
	ErrNotFound    = errors.New("api: not found")
	ErrServer      = errors.New("api: server error")
)

// Error is the failure outcome of every Client call.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps the error kind onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuthExpired:
		return e.Kind == KindAuthExpired
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthExpired
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// parseError builds an *Error from a non-2xx response.
func parseError(status int, body []byte) error {
	msg := ""
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		msg = env.Message
	} else if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") {
		msg = s
	} else {
		msg = http.StatusText(status)
	}
	return &Error{Kind: kindForStatus(status), StatusCode: status, Message: msg}
}
