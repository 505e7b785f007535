package ui

import "github.com/circl-ai/circl/internal/model"

// Stream activity reaches the model exclusively as typed messages delivered
// through the event channel, so fragments, status lines, and profile updates
// never race each other onto the terminal.

// sessionReadyMsg signals that session setup finished.
type sessionReadyMsg struct {
	sessionID string
	err       error
}

// streamUpdateMsg signals that the reducer has new fragment content and the
// viewport should re-render.
type streamUpdateMsg struct{}

// statusMsg carries a backend status line.
type statusMsg struct {
	text string
}

// profilesMsg carries the accumulated search results.
type profilesMsg struct {
	profiles []model.Profile
}

// streamDoneMsg signals that the in-flight query finished. It is always the
// last message of a stream.
type streamDoneMsg struct {
	err error
}
