// Package ivasms is the client for the iVASMS campaign API: account
// login and bulk retrieval of verification-code messages.
package ivasms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

const (
	loginPath = "/api/v1/auth/login"
	fetchPath = "/api/v1/biring/code"
)

// AuthError reports a failed login for one account. Non-fatal: the
// account is skipped for the current cycle.
type AuthError struct {
	Email string
	Err   error
}

func (e *AuthError) Error() string { return fmt.Sprintf("login %s: %v", e.Email, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed bulk fetch. Non-fatal: that source
// contributes nothing to the cycle.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch messages: %v", e.Err)
	}
	return fmt.Sprintf("fetch messages: status %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	login   *http.Client
	fetch   *http.Client
}

// NewClient builds a client for the given API base. Login uses a short
// timeout; the bulk fetch gets a long one because the source aggregates
// slowly.
func NewClient(baseURL string, loginTimeout, fetchTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		login:   &http.Client{Timeout: loginTimeout},
		fetch:   &http.Client{Timeout: fetchTimeout},
	}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", &AuthError{Email: email, Err: err}
	}
	status, respBody, err := c.post(ctx, c.login, c.baseURL+loginPath, body)
	if err != nil {
		return "", &AuthError{Email: email, Err: err}
	}
	if status != http.StatusOK {
		return "", &AuthError{Email: email, Err: fmt.Errorf("status %d", status)}
	}
	token := gjson.GetBytes(respBody, "data.token").String()
	if token == "" {
		return "", &AuthError{Email: email, Err: fmt.Errorf("no token in response")}
	}
	return token, nil
}

// FetchMessages retrieves message records newer than startDate using the
// given session token, truncated to limit.
func (c *Client) FetchMessages(ctx context.Context, token, startDate string, limit int) ([]models.Message, error) {
	body, err := json.Marshal(map[string]string{"token": token, "start_date": startDate})
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	status, respBody, err := c.post(ctx, c.fetch, c.baseURL+fetchPath, body)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{StatusCode: status}
	}

	rows := gjson.GetBytes(respBody, "data.messages").Array()
	messages := make([]models.Message, 0, len(rows))
	for _, r := range rows {
		if limit > 0 && len(messages) >= limit {
			break
		}
		messages = append(messages, models.Message{
			Number:      r.Get("number").String(),
			ServiceName: r.Get("service_name").String(),
			Message:     r.Get("message").String(),
			Range:       r.Get("range").String(),
			Revenue:     r.Get("revenue").String(),
		})
	}
	return messages, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
