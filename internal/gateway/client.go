// Package gateway talks to the remote order service that owns order state.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

// ErrUnauthorized means the gateway answered 401: the held credential is no good.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is any non-2xx answer other than 401.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.Code, e.Message)
}

// RejectedError is a 2xx answer carrying success: false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "rejected by gateway"
	}
	return "rejected by gateway: " + e.Message
}

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Orders  []model.Order `json:"orders,omitempty"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ListOrders fetches every order for admins and the caller's own orders for customers.
func (c *Client) ListOrders(ctx context.Context, token string, role model.Role) ([]model.Order, error) {
	path := "/orders/my-orders"
	if role == model.RoleAdmin {
		path = "/orders"
	}

	env, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	return env.Orders, nil
}

// Mutate issues one state-changing call. text goes into the body field the
// action requires and is ignored for actions that carry none.
func (c *Client) Mutate(ctx context.Context, token, orderID string, action lifecycle.Action, text string) error {
	t, ok := lifecycle.Lookup(action)
	if !ok {
		return fmt.Errorf("%w: %q", lifecycle.ErrUnknownAction, action)
	}

	var body any
	if t.Input.Required() {
		body = map[string]string{t.Input.Field: text}
	}

	path := fmt.Sprintf("/orders/%s/%s", url.PathEscape(orderID), action)
	_, err := c.do(ctx, http.MethodPut, path, token, body)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Message: messageOf(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return nil, &RejectedError{Message: env.Message}
	}
	return &env, nil
}

// messageOf prefers the JSON message field and falls back to a plain-text body.
func messageOf(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		return env.Message
	}
	return strings.TrimSpace(string(raw))
}
