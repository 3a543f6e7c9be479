package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Raj-venom/scrap-dai-client/internal/metrics"
)

const (
	headerContentType = "Content-Type"
	headerUserAgent   = "User-Agent"
	headerRequestID   = "X-Request-ID"
	contentTypeJSON   = "application/json"

	maxResponseBytes = 10 << 20
)

// envelope is the backend's response wrapper.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    *bool           `json:"success"`
}

// newRequest builds a request for path, which may carry a query string.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "failed to create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	return req, nil
}

// doRequest sends an authenticated JSON request and decodes the envelope's
// data into result.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.doJSON(ctx, c.httpClient, method, path, body, result)
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method, path string, body interface{}, result interface{}) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "failed to marshal request body", Err: err}
		}
		bodyReader = bytes.NewReader(b)
		contentType = contentTypeJSON
	}

	req, err := c.newRequest(ctx, method, path, bodyReader, contentType)
	if err != nil {
		return err
	}
	return c.send(hc, req, result)
}

// do sends req with credentials and decodes the response.
func (c *Client) do(req *http.Request, result interface{}) error {
	return c.send(c.httpClient, req, result)
}

func (c *Client) send(hc *http.Client, req *http.Request, result interface{}) error {
	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set(headerRequestID, uuid.NewString())

	start := time.Now()
	resp, err := hc.Do(req)
	metrics.ObserveRequest(req.Method, metrics.StatusOf(resp), time.Since(start))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := parseError(resp.StatusCode, respBody)
		c.logger.Debug("backend request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", req.Header.Get(headerRequestID)),
		)
		return apiErr
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	if env.Success != nil && !*env.Success {
		return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return &Error{Kind: KindServer, StatusCode: resp.StatusCode, Message: "failed to parse response data", Err: err}
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.doRequest(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, http.MethodPost, path, body, result)
}

// postPublic sends an unauthenticated POST.
func (c *Client) postPublic(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doJSON(ctx, c.publicClient, http.MethodPost, path, body, result)
}

func (c *Client) patch(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, http.MethodPatch, path, body, result)
}

// pathf joins escaped path segments.
func pathf(format string, segments ...string) string {
	args := make([]interface{}, len(segments))
	for i, s := range segments {
		args[i] = url.PathEscape(s)
	}
	return fmt.Sprintf(format, args...)
}
