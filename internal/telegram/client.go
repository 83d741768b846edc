// Package telegram provides a minimal Bot API client covering the calls the
// moderation controller needs: update long polling, message delivery, chat
// member inspection and the ban/restrict family.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/safronx/sentinel/internal/metrics"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Bot API client for the given token.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point the client at a local fake server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Must comfortably exceed the getUpdates long-poll window.
			Timeout: 90 * time.Second,
		},
	}
}

// APIError is a non-OK response from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (code %d)", e.Description, e.Code)
}

// IsNotFound reports whether err is the Bot API telling us the requested
// chat, user or member does not exist.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Description), "not found")
}

// IsForbidden reports whether err means the platform refused the action
// outright: a 403, or an attempt to act on a chat administrator/owner.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 403 {
		return true
	}
	desc := strings.ToLower(apiErr.Description)
	return strings.Contains(desc, "administrator") || strings.Contains(desc, "chat owner")
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call issues a Bot API method with JSON-encoded params and decodes the
// result into out (which may be nil for methods whose result is ignored).
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	var body bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&body).Encode(params); err != nil {
			return fmt.Errorf("encoding %s params: %w", method, err)
		}
	}

	reqURL := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, "decode_error").Inc()
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	if !parsed.OK {
		metrics.APIRequestsTotal.WithLabelValues(method, "api_error").Inc()
		return &APIError{Code: parsed.ErrorCode, Description: parsed.Description}
	}
	metrics.APIRequestsTotal.WithLabelValues(method, "ok").Inc()

	if out != nil && parsed.Result != nil {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := struct {
		Offset  int64 `json:"offset"`
		Timeout int   `json:"timeout"`
	}{Offset: offset, Timeout: timeoutSec}

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a plain-text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	params := struct {
		ChatID int64  `json:"chat_id"`
		Text   string `json:"text"`
	}{ChatID: chatID, Text: text}

	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetChat fetches a chat by id or public @username.
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	params := struct {
		ChatID string `json:"chat_id"`
	}{ChatID: chatID}

	var chat Chat
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatByUsername fetches a public chat by handle (without the "@").
func (c *Client) GetChatByUsername(ctx context.Context, username string) (*Chat, error) {
	return c.GetChat(ctx, "@"+username)
}

// GetChatMember returns a user's membership in a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	params := struct {
		ChatID int64 `json:"chat_id"`
		UserID int64 `json:"user_id"`
	}{ChatID: chatID, UserID: userID}

	var member ChatMember
	if err := c.call(ctx, "getChatMember", params, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// BanChatMember bans a user from a chat.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	params := struct {
		ChatID int64 `json:"chat_id"`
		UserID int64 `json:"user_id"`
	}{ChatID: chatID, UserID: userID}
	return c.call(ctx, "banChatMember", params, nil)
}

// UnbanChatMember lifts a ban. OnlyIfBanned keeps the call from kicking a
// present member.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	params := struct {
		ChatID       int64 `json:"chat_id"`
		UserID       int64 `json:"user_id"`
		OnlyIfBanned bool  `json:"only_if_banned"`
	}{ChatID: chatID, UserID: userID, OnlyIfBanned: true}
	return c.call(ctx, "unbanChatMember", params, nil)
}

// RestrictChatMember applies a permission mask to a member until the given
// time. A zero until means the restriction does not expire on its own.
func (c *Client) RestrictChatMember(ctx context.Context, chatID, userID int64, perms ChatPermissions, until time.Time) error {
	var untilDate int64
	if !until.IsZero() {
		untilDate = until.Unix()
	}
	params := struct {
		ChatID      int64           `json:"chat_id"`
		UserID      int64           `json:"user_id"`
		Permissions ChatPermissions `json:"permissions"`
		UntilDate   int64           `json:"until_date,omitempty"`
	}{ChatID: chatID, UserID: userID, Permissions: perms, UntilDate: untilDate}
	return c.call(ctx, "restrictChatMember", params, nil)
}
