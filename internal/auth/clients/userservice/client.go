// Package userservice talks to the user service, which owns customer
// profiles.
package userservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saifdinehd/shopauth/internal/auth/domain"
)

// DefaultTimeout bounds a single call to the user service.
const DefaultTimeout = 5 * time.Second

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Email     string      `json:"email"`
	UserID    string      `json:"userId"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role"`
}

// StatusError is returned for a non-2xx reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("userservice: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("userservice: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client creates profiles over REST.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for baseURL with a timeout-bound http.Client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// CreateProfile posts the profile. Transport errors and non-2xx replies are
// both returned as errors; the caller decides whether to retry.
func (c *Client) CreateProfile(ctx context.Context, p domain.Profile) error {
	body, err := json.Marshal(CreateUserRequest{
		Email:     p.Email,
		UserID:    p.AccountID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/users", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("userservice: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
