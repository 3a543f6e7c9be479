package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Raj-venom/scrap-dai-client/internal/metrics"
	"github.com/Raj-venom/scrap-dai-client/internal/securestore"
)

// RefreshPath returns the role-scoped refresh endpoint path.
func RefreshPath(role Role) string {
	return "/" + string(role) + "/refresh-access-token"
}

type refreshResponse struct {
	Data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
	Message string `json:"message"`
	Success *bool  `json:"success"`
}

// Refresh exchanges the stored refresh token for a new token pair, persists
// it and returns the new access token.
//
// At most one refresh is in flight: concurrent callers wait for and share
// the result of the running call. When the credentials are missing or the
// backend rejects them the session is cleared and ErrRefreshUnavailable or
// ErrRefreshFailed is returned. A store read error is returned wrapped in
// ErrRefreshFailed and leaves the session in place.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do(refreshKey, func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others.
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	refreshToken, err := m.lookup(ctx, securestore.KeyRefreshToken)
	if err != nil {
		return "", m.storeFailure(err)
	}
	roleName, err := m.lookup(ctx, securestore.KeyRole)
	if err != nil {
		return "", m.storeFailure(err)
	}
	role := Role(roleName)
	if refreshToken == "" || !role.Valid() {
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshUnavailable).Inc()
		m.logger.Warn("refresh unavailable, clearing session",
			slog.Bool("has_refresh_token", refreshToken != ""),
			slog.String("role", roleName),
		)
		m.clearQuietly(ctx)
		return "", ErrRefreshUnavailable
	}

	access, rotated, err := m.callRefresh(ctx, role, refreshToken)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshFailure).Inc()
		m.logger.Warn("refresh failed, clearing session",
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		m.clearQuietly(ctx)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	if rotated == "" {
		rotated = refreshToken
	}
	if err := m.store.Set(ctx, securestore.KeyRefreshToken, rotated); err != nil {
		m.clearQuietly(ctx)
		return "", fmt.Errorf("%w: persist refresh token: %v", ErrRefreshFailed, err)
	}
	if err := m.store.Set(ctx, securestore.KeyAccessToken, access); err != nil {
		m.clearQuietly(ctx)
		return "", fmt.Errorf("%w: persist access token: %v", ErrRefreshFailed, err)
	}

	metrics.RefreshTotal.WithLabelValues(metrics.RefreshSuccess).Inc()
	m.logger.Debug("access token refreshed", slog.String("role", string(role)))
	return access, nil
}

// callRefresh issues the unauthenticated refresh request.
func (m *Manager) callRefresh(ctx context.Context, role Role, refreshToken string) (string, string, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+RefreshPath(role), bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("refresh endpoint returned status %d", resp.StatusCode)
	}

	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", "", fmt.Errorf("parse response: %w", err)
	}
	if out.Success != nil && !*out.Success {
		return "", "", fmt.Errorf("refresh rejected: %s", out.Message)
	}
	if out.Data.AccessToken == "" {
		return "", "", fmt.Errorf("refresh response carried no access token")
	}
	return out.Data.AccessToken, out.Data.RefreshToken, nil
}

// storeFailure reports an unreadable store. The session is kept: it may be
// valid once the store recovers.
func (m *Manager) storeFailure(err error) error {
	metrics.RefreshTotal.WithLabelValues(metrics.RefreshFailure).Inc()
	m.logger.Error("failed to read session for refresh", slog.String("error", err.Error()))
	return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
}

func (m *Manager) clearQuietly(ctx context.Context) {
	if err := m.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session", slog.String("error", err.Error()))
	}
}

// tokenForResend returns the access token a request that failed with
// failedToken should be resent with. If the stored token already differs,
// another request has rotated it and no refresh is needed.
func (m *Manager) tokenForResend(ctx context.Context, failedToken string) (string, error) {
	current, err := m.lookup(ctx, securestore.KeyAccessToken)
	if err == nil && current != "" && current != failedToken {
		return current, nil
	}
	return m.Refresh(ctx)
}
