// Package astralis is the client for the search backend's streaming API.
//
// The backend answers a query over a single HTTP response body as a relaxed
// SSE dialect: newline-delimited lines of the form "data: <json>", where the
// JSON object carries a type discriminator and a payload. Only the data field
// is used; event/id fields never appear.
package astralis

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Frame is one decoded stream frame.
type Frame struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Frame type discriminators emitted by the backend.
const (
	FrameThought    = "thought"
	FrameAction     = "action"
	FrameRawAction  = "raw_action"
	FrameResult     = "result"
	FrameUsers      = "users"
	FrameUsersFound = "users_found"
	FrameResponse   = "response"
	FrameStatus     = "status"
	FrameEnd        = "end"
	FrameError      = "error"
)

const dataPrefix = "data:"

// lineFramer splits an incoming byte stream into complete lines. A trailing
// partial line is carried over to the next feed, so a frame split across two
// network reads reassembles correctly.
type lineFramer struct {
	rest []byte
}

func (f *lineFramer) feed(chunk []byte) []string {
	buf := append(f.rest, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(buf[:i]))
		buf = buf[i+1:]
	}

	f.rest = append([]byte(nil), buf...)
	return lines
}

// parseFrame extracts a frame from one complete line. The second return is
// false for blank lines, non-data lines, and malformed JSON; malformed lines
// also return the raw payload so callers can log them.
func parseFrame(line string) (Frame, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.HasPrefix(trimmed, dataPrefix) {
		return Frame{}, "", false
	}

	payload := strings.TrimSpace(trimmed[len(dataPrefix):])
	if payload == "" {
		return Frame{}, "", false
	}

	var frame Frame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return Frame{}, payload, false
	}

	return frame, payload, true
}
