package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/Raj-venom/scrap-dai-client/internal/metrics"
)

// attempt threads the per-request retry state through the transport
// without touching the caller's request.
type attempt struct {
	req     *http.Request
	token   string
	retried bool
}

// Transport is an http.RoundTripper that attaches the stored access token
// and, on a first 401, refreshes credentials and resends the request once.
//
// If the refresh fails the session is cleared and the original 401 response
// is returned to the caller. A resent request is never retried again; a 401
// on the resend means the credentials are dead and also clears the session.
// Requests whose body cannot be replayed (GetBody == nil) are not resent.
type Transport struct {
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Manager supplies and refreshes credentials.
	Manager *Manager
}

// NewTransport wraps base with credential handling.
func NewTransport(m *Manager, base http.RoundTripper) *Transport {
	return &Transport{Base: base, Manager: m}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	a := &attempt{req: req}
	resp, err := t.send(a)
	if err != nil {
		return nil, err
	}
	return t.handleResponse(a, resp)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// send clones the attempt's request, attaches credentials and sends it.
func (t *Transport) send(a *attempt) (*http.Response, error) {
	out := a.req.Clone(a.req.Context())
	if a.retried && a.req.GetBody != nil {
		body, err := a.req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	token, err := t.Manager.AttachCredentials(out)
	if err != nil {
		return nil, err
	}
	a.token = token
	return t.base().RoundTrip(out)
}

func (t *Transport) handleResponse(a *attempt, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if a.retried {
		t.Manager.logger.Warn("401 after resend, clearing session",
			slog.String("method", a.req.Method),
			slog.String("path", a.req.URL.Path),
		)
		t.Manager.clearQuietly(context.WithoutCancel(a.req.Context()))
		return resp, nil
	}
	if !replayable(a.req) {
		t.Manager.logger.Debug("401 on non-replayable request, not resending",
			slog.String("method", a.req.Method),
			slog.String("path", a.req.URL.Path),
		)
		return resp, nil
	}

	if _, err := t.Manager.tokenForResend(a.req.Context(), a.token); err != nil {
		// Session cleared or store unreadable; surface the original response.
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	a.retried = true
	metrics.ResendTotal.Inc()
	t.Manager.logger.Debug("resending request with refreshed credentials",
		slog.String("method", a.req.Method),
		slog.String("path", a.req.URL.Path),
	)
	resp, err := t.send(a)
	if err != nil {
		return nil, err
	}
	return t.handleResponse(a, resp)
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

var _ http.RoundTripper = (*Transport)(nil)
