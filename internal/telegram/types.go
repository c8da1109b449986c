// Package telegram is a minimal Telegram Bot API client covering the calls
// the dedupe bot needs: sending text and video, deleting messages, chat
// member lookups, and receiving updates by webhook or long polling.
package telegram

import "encoding/json"

// Update is one inbound event from the Bot API.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies a conversation (private, group, supergroup, or channel).
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// Video is a video attachment. FileUniqueID is stable across re-posts of the
// same file; FileID is what the API accepts for re-sending and can differ
// between posts of the same content.
type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration,omitempty"`
}

// Message is an inbound or sent chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date,omitempty"`
	Text      string `json:"text,omitempty"`
	Video     *Video `json:"video,omitempty"`
}

// ChatMember is the result of getChatMember; only the status is relevant
// here ("creator", "administrator", "member", "restricted", "left", "kicked").
type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"`
}

// apiResponse is the Bot API envelope wrapping every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}
