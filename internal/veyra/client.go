// Package veyra implements the client for the Veyra verification API.
package veyra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Monkestation/Veyra-Vet/internal/cache"
	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/observability"
)

// API is the verification surface the services consume.
type API interface {
	// GetVerificationByCkey returns the verification record for ckey,
	// or nil when none exists.
	GetVerificationByCkey(ctx context.Context, ckey string) (*models.Verification, error)
	// CreateOrUpdateVerification upserts a verification record.
	CreateOrUpdateVerification(ctx context.Context, discordID, ckey string, flags models.VerifiedFlags) (*models.Verification, error)
}

// Client talks HTTP/JSON to a Veyra instance. A bearer token from login is
// attached to every call; a 401/403 triggers exactly one re-login and retry.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	cache      *cache.VerificationCache

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache enables read-through caching of verification lookups.
func WithCache(vc *cache.VerificationCache) Option {
	return func(c *Client) { c.cache = vc }
}

// NewClient creates a Veyra API client.
func NewClient(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates and stores the bearer token. Invalid credentials fail
// the whole client.
func (c *Client) Login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return models.NewUpstreamError("Verification service is unavailable.", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.VeyraRequests.WithLabelValues("login", "error").Inc()
		return models.NewUpstreamError("Verification service is unavailable.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.VeyraRequests.WithLabelValues("login", "error").Inc()
		return models.NewUpstreamError("Verification service login failed.",
			fmt.Errorf("login failed: %d", resp.StatusCode))
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.NewUpstreamError("Verification service login failed.", err)
	}

	c.mu.Lock()
	c.token = payload.Token
	c.mu.Unlock()
	observability.VeyraRequests.WithLabelValues("login", "ok").Inc()
	slog.Info("logged into Veyra API")
	return nil
}

// GetVerificationByCkey looks up a verification record, consulting the cache
// first when one is configured.
func (c *Client) GetVerificationByCkey(ctx context.Context, ckey string) (*models.Verification, error) {
	if v, ok := c.cache.Get(ctx, ckey); ok {
		return v, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/verify/ckey/"+ckey, nil)
	if err != nil {
		observability.VeyraRequests.WithLabelValues("lookup", "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		observability.VeyraRequests.WithLabelValues("lookup", "miss").Inc()
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		observability.VeyraRequests.WithLabelValues("lookup", "error").Inc()
		return nil, models.NewUpstreamError("Verification lookup failed.",
			fmt.Errorf("fetch verification: %d", resp.StatusCode))
	}

	var verification models.Verification
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return nil, models.NewUpstreamError("Verification lookup failed.", err)
	}

	observability.VeyraRequests.WithLabelValues("lookup", "ok").Inc()
	c.cache.Set(ctx, ckey, &verification)
	return &verification, nil
}

// CreateOrUpdateVerification upserts a verification record for (discordID, ckey).
func (c *Client) CreateOrUpdateVerification(ctx context.Context, discordID, ckey string, flags models.VerifiedFlags) (*models.Verification, error) {
	body := map[string]interface{}{
		"discord_id":          discordID,
		"ckey":                ckey,
		"verified_flags":      flags,
		"verification_method": "manual_discord",
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/verify", body)
	if err != nil {
		observability.VeyraRequests.WithLabelValues("upsert", "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.VeyraRequests.WithLabelValues("upsert", "error").Inc()
		return nil, models.NewUpstreamError("Verification update failed.",
			fmt.Errorf("create/update verification: %d", resp.StatusCode))
	}

	var verification models.Verification
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return nil, models.NewUpstreamError("Verification update failed.", err)
	}

	observability.VeyraRequests.WithLabelValues("upsert", "ok").Inc()
	c.cache.Set(ctx, ckey, &verification)
	return &verification, nil
}

// do sends one authenticated request, logging in first if no token is held
// and retrying exactly once after a 401/403.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	if c.currentToken() == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.send(ctx, method, path, body)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, models.NewUpstreamError("Verification service is unavailable.", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.currentToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamError("Verification service is unavailable.", err)
	}
	return resp, nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
