package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/circl-ai/circl/internal/model"
	"github.com/circl-ai/circl/pkg/logger"
	"github.com/circl-ai/circl/pkg/metrics"
)

// ErrAuthRequired is returned when a call needs credentials that are absent
// or can no longer be refreshed. Callers surface it as a login prompt.
var ErrAuthRequired = errors.New("authentication required")

// Client talks to the auth service.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	logger  *logger.Logger

	// Serializes refreshes so concurrent 401s trigger a single round trip.
	refreshMu sync.Mutex
}

// NewClient creates an auth client. The HTTP client here is deliberately
// plain: login and refresh must not recurse through the auth transport.
func NewClient(baseURL string, httpClient *http.Client, store TokenStore, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		store:   store,
		logger:  log,
	}
}

// Store returns the token store backing this client.
func (c *Client) Store() TokenStore {
	return c.store
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

type tokenPairResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         model.UserWire `json:"user"`
}

// GoogleLogin exchanges an OIDC id_token for an application token pair and
// stores it.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (model.User, error) {
	var out tokenPairResponse
	if err := c.post(ctx, "/google/log-in", googleLoginRequest{Token: idToken}, "", &out); err != nil {
		return model.User{}, err
	}

	if err := c.store.Save(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return model.User{}, fmt.Errorf("save tokens: %w", err)
	}

	c.logger.Info("logged in")
	return model.UserFromWire(out.User), nil
}

// Validate checks the stored access token against the auth service and
// returns the account profile. Invalid credentials are cleared.
func (c *Client) Validate(ctx context.Context) (model.User, error) {
	tokens, err := c.store.Load()
	if err != nil {
		return model.User{}, fmt.Errorf("load tokens: %w", err)
	}
	if tokens.AccessToken == "" {
		return model.User{}, ErrAuthRequired
	}

	var out model.UserWire
	if err := c.post(ctx, "/validate", struct{}{}, tokens.AccessToken, &out); err != nil {
		if errors.Is(err, ErrAuthRequired) {
			_ = c.store.Clear()
		}
		return model.User{}, err
	}
	return model.UserFromWire(out), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges the refresh token for a new pair. Exactly one refresh
// runs at a time; a failed refresh clears stored credentials.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	tokens, err := c.store.Load()
	if err != nil {
		return "", fmt.Errorf("load tokens: %w", err)
	}
	if tokens.RefreshToken == "" {
		return "", ErrAuthRequired
	}

	var out tokenPairResponse
	if err := c.post(ctx, "/refresh", refreshRequest{RefreshToken: tokens.RefreshToken}, "", &out); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		_ = c.store.Clear()
		c.logger.Warn("token refresh failed, credentials cleared")
		return "", errors.Join(ErrAuthRequired, err)
	}

	next := Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = tokens.RefreshToken
	}
	if err := c.store.Save(next); err != nil {
		return "", fmt.Errorf("save tokens: %w", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return next.AccessToken, nil
}

// Logout discards stored credentials.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// IsAuthenticated reports whether an access token is stored. It says nothing
// about token validity; that is the server's call.
func (c *Client) IsAuthenticated() bool {
	tokens, err := c.store.Load()
	return err == nil && tokens.AccessToken != ""
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthRequired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth request %s: status %d %s", path, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
