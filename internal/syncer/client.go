package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"alert-center-backend/internal/model"
)

// Client talks to the alert-center HTTP API. After a successful Login it
// carries the session token and satisfies AlertSource for the sync loop.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login authenticates and stores the session token on success. Any
// rejection leaves the client unauthenticated with no partial state.
func (c *Client) Login(ctx context.Context, phone, password string) (*model.Recipient, error) {
	body, err := json.Marshal(map[string]string{"phone": phone, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login rejected: %s", apiError(resp))
	}

	var result struct {
		Token     string          `json:"token"`
		Recipient model.Recipient `json:"recipient"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = result.Token
	return &result.Recipient, nil
}

// Logout drops the session token.
func (c *Client) Logout() {
	c.token = ""
}

// Fetch returns the alerts currently visible to the logged-in recipient,
// newest first. Implements AlertSource.
func (c *Client) Fetch(ctx context.Context) ([]model.Alert, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/api/alerts", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alert fetch failed: %s", apiError(resp))
	}

	var alerts []model.Alert
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return alerts, nil
}

// RegisterSubscription uploads this device's push channel. Safe to repeat;
// the server stores at most one record per endpoint.
func (c *Client) RegisterSubscription(ctx context.Context, endpoint, p256dh, auth, userAgent string) error {
	body, err := json.Marshal(map[string]string{
		"endpoint":   endpoint,
		"p256dh":     p256dh,
		"auth":       auth,
		"user_agent": userAgent,
	})
	if err != nil {
		return err
	}

	req, err := c.authedRequest(ctx, http.MethodPut, "/api/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("subscription registration failed: %s", apiError(resp))
	}
	return nil
}

// MarkRead records a read receipt for one alert.
func (c *Client) MarkRead(ctx context.Context, alertID string) error {
	req, err := c.authedRequest(ctx, http.MethodPost, "/api/alerts/"+alertID+"/read", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("read receipt failed: %s", apiError(resp))
	}
	return nil
}

// VAPIDPublicKey fetches the server key material needed to open a push
// subscription.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vapid_public_key", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vapid key fetch failed: %s", apiError(resp))
	}

	var result struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.PublicKey, nil
}

func (c *Client) authedRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.token == "" {
		return nil, fmt.Errorf("not logged in")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

func apiError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
