package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Messenger is the messaging surface consumed by the bot's workflows.
// Every call is blocking-but-cancellable I/O; failures are expected and the
// workflows treat them as per-item skips.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (*Message, error)
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error)
}

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	base       string
	token      string
	httpClient *http.Client
}

// NewClient creates a Bot API client. If apiBase is empty it defaults to
// https://api.telegram.org (tests point it at a local server).
func NewClient(token, apiBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		base:  apiBase,
		token: token,
		httpClient: &http.Client{
			// Generous enough for getUpdates long polls.
			Timeout: 65 * time.Second,
		},
	}
}

// SendText posts a plain text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (*Message, error) {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", body, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &msg, nil
}

// SendVideo re-sends a previously seen video by its file_id with a caption.
func (c *Client) SendVideo(ctx context.Context, chatID int64, fileID, caption string) (*Message, error) {
	body := map[string]any{
		"chat_id": chatID,
		"video":   fileID,
		"caption": caption,
	}
	var msg Message
	if err := c.call(ctx, "sendVideo", body, &msg); err != nil {
		return nil, fmt.Errorf("send video: %w", err)
	}
	return &msg, nil
}

// DeleteMessage removes a message from a chat. The API errors when the
// message is already gone or the bot lacks permission; callers treat that as
// a per-item failure.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	body := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	var ok bool
	if err := c.call(ctx, "deleteMessage", body, &ok); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// GetChatMember fetches a user's membership status in a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	body := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	var member ChatMember
	if err := c.call(ctx, "getChatMember", body, &member); err != nil {
		return nil, fmt.Errorf("get chat member: %w", err)
	}
	return &member, nil
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	body := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", body, &updates); err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// SetWebhook registers (or, with an empty URL, removes) the webhook endpoint.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	body := map[string]any{
		"url": url,
	}
	var ok bool
	if err := c.call(ctx, "setWebhook", body, &ok); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// call issues one Bot API method and decodes the enveloped result into out.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env apiResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.OK {
		return fmt.Errorf("api error %d: %s", env.ErrorCode, env.Description)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
