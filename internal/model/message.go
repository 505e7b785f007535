package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DraftMessage is a client-side, possibly-incomplete message. Assistant
// content grows in place while fragments stream in.
type DraftMessage struct {
	MessageID    string
	SessionID    string
	Role         Role
	Content      string
	CreatedAt    time.Time
	IsThinking   bool
	ThinkingText string
}

// MessageWire is the persisted message shape on the wire.
type MessageWire struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageFromWire maps a wire message to the client shape.
func MessageFromWire(w MessageWire) DraftMessage {
	return DraftMessage{
		MessageID: w.MessageID,
		SessionID: w.SessionID,
		Role:      Role(w.Role),
		Content:   w.Content,
		CreatedAt: w.CreatedAt,
	}
}

// ListMessagesResponse is the wire response for a session's message history.
type ListMessagesResponse struct {
	Messages []MessageWire `json:"messages"`
}
