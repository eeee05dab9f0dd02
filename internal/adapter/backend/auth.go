package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshMargin renews a bearer token this long before it expires.
const tokenRefreshMargin = 30 * time.Second

// ErrLoginFailed is returned when the backend rejects the credentials.
var ErrLoginFailed = errors.New("backend login failed")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Data        struct {
		Token string `json:"token"`
	} `json:"data"`
}

func (r loginResponse) token() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.AccessToken != "":
		return r.AccessToken
	default:
		return r.Data.Token
	}
}

// Login exchanges credentials for a bearer token and keeps it for later
// requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BackendRequests.WithLabelValues(opLogin, outcomeError).Inc()
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.BackendRequests.WithLabelValues(opLogin, outcomeError).Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: status %d: %s", ErrLoginFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		c.metrics.BackendRequests.WithLabelValues(opLogin, outcomeError).Inc()
		return "", fmt.Errorf("decode login response: %w", err)
	}
	token := lr.token()
	if token == "" {
		c.metrics.BackendRequests.WithLabelValues(opLogin, outcomeError).Inc()
		return "", fmt.Errorf("%w: response carried no token", ErrLoginFailed)
	}

	c.metrics.BackendRequests.WithLabelValues(opLogin, outcomeSuccess).Inc()

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.logger.Info("backend login succeeded", "username", username)
	return token, nil
}

// bearer returns a usable token, logging in first when credentials are
// configured and the held token is missing or about to expire. An empty
// string means anonymous access.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" && !tokenExpiring(token, c.now()) {
		return token, nil
	}
	if c.username == "" {
		return token, nil
	}
	return c.Login(ctx, c.username, c.password)
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// tokenExpiring reads the exp claim without verifying the signature; the
// backend owns verification. Opaque or exp-less tokens never expire here.
func tokenExpiring(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now.Add(tokenRefreshMargin))
}
