// Package model defines data structures shared by the chat client packages.
package model

import (
	"time"
)

// Session represents a persisted conversation thread with the search backend.
type Session struct {
	SessionID string
	UserID    string
	Title     string
	CreatedAt time.Time
}

// SessionWire is the session shape on the wire.
type SessionWire struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionFromWire maps a wire session to the client shape.
func SessionFromWire(w SessionWire) Session {
	return Session{
		SessionID: w.SessionID,
		UserID:    w.UserID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt,
	}
}

// ListSessionsResponse is the wire response for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionWire `json:"sessions"`
}

// CreateSessionRequest is the wire request to create a session.
type CreateSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// CreateSessionResponse is the wire response after creating a session.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}
