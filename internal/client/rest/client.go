package rest

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

	"pgnest/internal/app/dto"
)

var (
	// ErrUnauthorized is returned on 401 so the session owner can evict the
	// stored token and send the user back to login.
	ErrUnauthorized = errors.New("rest: unauthorized")
	ErrNotFound     = errors.New("rest: not found")
)

// Client is a typed HTTP client for the PGNest API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	token      string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", req, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) OwnerConversations(ctx context.Context, ownerID string) ([]dto.Conversation, error) {
	var out []dto.Conversation
	err := c.do(ctx, http.MethodGet, "/messages/conversations/owner/"+url.PathEscape(ownerID), nil, &out)
	return out, err
}

func (c *Client) TenantConversations(ctx context.Context, tenantEmail string) ([]dto.Conversation, error) {
	var out []dto.Conversation
	err := c.do(ctx, http.MethodGet, "/messages/conversations/tenant/"+url.PathEscape(tenantEmail), nil, &out)
	return out, err
}

func (c *Client) Conversation(ctx context.Context, conversationID string) (dto.Conversation, error) {
	var out dto.Conversation
	err := c.do(ctx, http.MethodGet, "/messages/conversations/"+url.PathEscape(conversationID), nil, &out)
	return out, err
}

func (c *Client) MarkRead(ctx context.Context, conversationID, readerID string) error {
	path := "/messages/conversations/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, http.MethodPatch, path, dto.MarkReadRequest{ReaderID: readerID}, nil)
}

type replyResponse struct {
	ConversationID string      `json:"conversationId"`
	Message        dto.Message `json:"message"`
}

func (c *Client) Reply(ctx context.Context, req dto.ReplyRequest) (dto.Message, error) {
	var out replyResponse
	if err := c.do(ctx, http.MethodPost, "/messages/reply", req, &out); err != nil {
		return dto.Message{}, err
	}
	return out.Message, nil
}

func (c *Client) StartConversation(ctx context.Context, req dto.StartConversationRequest) (dto.Conversation, error) {
	var out dto.Conversation
	err := c.do(ctx, http.MethodPost, "/messages/start", req, &out)
	return out, err
}

func (c *Client) OwnerStats(ctx context.Context, ownerID string) (dto.Stats, error) {
	var out dto.Stats
	err := c.do(ctx, http.MethodGet, "/messages/stats/"+url.PathEscape(ownerID), nil, &out)
	return out, err
}

func (c *Client) TenantStats(ctx context.Context, tenantEmail string) (dto.Stats, error) {
	var out dto.Stats
	err := c.do(ctx, http.MethodGet, "/messages/tenant-stats/"+url.PathEscape(tenantEmail), nil, &out)
	return out, err
}

func (c *Client) Property(ctx context.Context, propertyID string) (dto.Property, error) {
	var out dto.Property
	err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(propertyID), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("rest: %s %s: %s", method, path, apiError(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rest: decode response: %w", err)
	}
	return nil
}

func apiError(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err == nil && json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
