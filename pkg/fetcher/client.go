package fetcher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkralj/hepmeter/pkg/logger"
	"github.com/dkralj/hepmeter/pkg/meter"
)

// maxResponseSize caps portal response bodies (16MB). A month of
// 15-minute intervals is well under 1MB even base64-encoded.
const maxResponseSize = 16 * 1024 * 1024

// client implements the Client interface over HTTP.
type client struct {
	config Config
	http   *http.Client
	logger logger.Logger

	mu    sync.Mutex
	token string
}

// loginRequest is the portal login payload.
type loginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// loginResponse is the portal login response.
type loginResponse struct {
	Token string `json:"Token"`
}

// fileResponse wraps the base64-encoded CSV payload.
type fileResponse struct {
	Data string `json:"data"`
}

// New creates a new portal client.
//
// Parameters:
//   - cfg: Client configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Client
//   - ErrMissingCredentials if any credential field is empty
func New(cfg Config, log logger.Logger) (Client, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.OIB == "" || cfg.OMM == "" {
		return nil, ErrMissingCredentials
	}

	// Set defaults.
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Backoff == nil {
		cfg.Retry.Backoff = DefaultBackoff
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &client{
		config: cfg,
		http:   httpClient,
		logger: log,
	}, nil
}

// Login implements Client.Login.
func (c *client) Login(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{
		Username: c.config.Username,
		Password: c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal login payload: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/user/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&lr); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if lr.Token == "" {
		return ErrTokenMissing
	}

	c.mu.Lock()
	c.token = lr.Token
	c.mu.Unlock()

	c.logger.Debug("portal login succeeded")
	return nil
}

// FetchMonth implements Client.FetchMonth.
func (c *client) FetchMonth(ctx context.Context, month meter.MonthKey, direction meter.Direction) (Result, error) {
	if !direction.Valid() {
		return Result{}, fmt.Errorf("%w: %q", meter.ErrInvalidDirection, direction)
	}

	var lastErr error

	for attempt := 1; attempt <= c.config.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.config.Retry.Backoff(attempt - 1)
			c.logger.Debug("retrying fetch",
				"month", month.String(),
				"direction", direction.String(),
				"attempt", attempt,
				"delay", delay)

			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.fetchOnce(ctx, month, direction)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !isTransient(err) {
			// Fatal for this call; retrying won't help.
			return Result{}, err
		}

		lastErr = err
	}

	return Result{}, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// fetchOnce issues a single month request, handling token expiry.
//
// A 401 triggers one re-login and an immediate repeat of the same
// request; that repeat does not consume retry budget.
func (c *client) fetchOnce(ctx context.Context, month meter.MonthKey, direction meter.Direction) (Result, error) {
	resp, err := c.doFileRequest(ctx, month, direction)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		closeBody(resp.Body, c.logger)

		c.logger.Debug("token expired, re-authenticating",
			"month", month.String())
		if err := c.Login(ctx); err != nil {
			return Result{}, err
		}

		resp, err = c.doFileRequest(ctx, month, direction)
		if err != nil {
			return Result{}, err
		}
	}
	defer closeBody(resp.Body, c.logger)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No data for this month; a normal outcome, never retried.
		return Result{Status: StatusNotFound}, nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, &StatusError{Code: resp.StatusCode}
	}

	var fr fileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&fr); err != nil {
		return Result{}, fmt.Errorf("failed to decode file response: %w", err)
	}

	if fr.Data == "" {
		return Result{Status: StatusOK}, nil
	}

	body, err := base64.StdEncoding.DecodeString(fr.Data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode CSV payload: %w", err)
	}

	return Result{Status: StatusOK, Body: body}, nil
}

// doFileRequest issues the month file request with the current token,
// logging in first when no token is held yet.
func (c *client) doFileRequest(ctx context.Context, month meter.MonthKey, direction meter.Direction) (*http.Response, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}

	url := fmt.Sprintf("%s/data/file/oib/%s/omm/%s/krivulja/mjesec/%s/smjer/%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		c.config.OIB, c.config.OMM, month.String(), direction.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("portal request failed: %w", err)}
	}

	return resp, nil
}

// closeBody closes a response body, logging close failures.
func closeBody(body io.ReadCloser, log logger.Logger) {
	if err := body.Close(); err != nil {
		log.Warn("failed to close response body", "error", err)
	}
}
