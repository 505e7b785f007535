package astralis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/circl-ai/circl/internal/model"
	"github.com/circl-ai/circl/pkg/logger"
	"github.com/circl-ai/circl/pkg/metrics"
)

// ServerError is an application error reported by the backend, either as an
// error frame mid-stream or as a non-2xx response.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Callbacks receives typed stream events as they arrive. Nil callbacks are
// skipped, so consumers subscribe only to what they render.
type Callbacks struct {
	OnThought   func(fragment string)
	OnAction    func(text string)
	OnResponse  func(fragment string)
	OnStatus    func(status string)
	OnUsers     func(raw json.RawMessage)
	OnFoundUser func(p model.Profile)
}

// Client talks to the search backend. The HTTP client is injected so the
// auth transport (bearer attach + refresh-and-retry) wraps every call.
type Client struct {
	baseURL    string
	sessionURL string
	http       *http.Client
	logger     *logger.Logger
}

// New creates a search backend client.
func New(baseURL, sessionURL string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		sessionURL: sessionURL,
		http:       httpClient,
		logger:     log,
	}
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Query sends a search query and consumes the streamed response until an end
// frame, an error frame, or EOF. Frames are dispatched to the callbacks in
// arrival order. Malformed lines are logged and skipped; an error frame
// terminates the stream and any lines buffered after it are not processed.
func (c *Client) Query(ctx context.Context, sessionID, query string, cb Callbacks) error {
	start := time.Now()
	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	status := "success"
	defer func() {
		metrics.RecordStream(status, time.Since(start).Seconds())
	}()

	resp, err := c.post(ctx, c.baseURL+"/query", queryRequest{Query: query, SessionID: sessionID})
	if err != nil {
		status = "error"
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status = "error"
		return &ServerError{Message: fmt.Sprintf("query failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	if err := c.consume(resp.Body, cb); err != nil {
		status = "error"
		return err
	}
	return nil
}

// consume runs the stream loop over a response body.
func (c *Client) consume(body io.Reader, cb Callbacks) error {
	framer := &lineFramer{}
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range framer.feed(buf[:n]) {
				done, derr := c.dispatch(line, cb)
				if derr != nil {
					return derr
				}
				if done {
					// Anything still buffered after an end frame is discarded.
					return nil
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// dispatch handles one complete line. It returns done=true on an end frame
// and a non-nil error on an error frame.
func (c *Client) dispatch(line string, cb Callbacks) (bool, error) {
	frame, payload, ok := parseFrame(line)
	if !ok {
		if payload != "" {
			c.logger.Warn("skipping malformed stream line", zap.String("payload", payload))
		}
		return false, nil
	}

	metrics.RecordFrame(frame.Type)

	switch frame.Type {
	case FrameThought:
		c.text(frame, cb.OnThought)
	case FrameAction:
		c.text(frame, cb.OnAction)
	case FrameRawAction, FrameResult:
		// Internal agent traces. Not rendered.
	case FrameUsers:
		if cb.OnUsers != nil {
			cb.OnUsers(frame.Message)
		}
	case FrameUsersFound:
		c.foundUsers(frame, cb)
	case FrameResponse:
		c.text(frame, cb.OnResponse)
	case FrameStatus:
		c.text(frame, cb.OnStatus)
	case FrameEnd:
		if cb.OnStatus != nil {
			cb.OnStatus("Completed")
		}
		return true, nil
	case FrameError:
		var msg string
		if err := json.Unmarshal(frame.Message, &msg); err != nil {
			msg = string(frame.Message)
		}
		return false, &ServerError{Message: msg}
	default:
		// Unrecognized frame types are ignored for forward compatibility.
		c.logger.Debug("ignoring unknown frame type", zap.String("type", frame.Type))
	}

	return false, nil
}

func (c *Client) text(frame Frame, fn func(string)) {
	if fn == nil {
		return
	}
	var s string
	if err := json.Unmarshal(frame.Message, &s); err != nil {
		c.logger.Warn("skipping non-string frame payload", zap.String("type", frame.Type))
		return
	}
	fn(s)
}

// foundUsers decodes one or many profiles from a users_found frame. The
// backend emits a single object per event today, but older deployments sent
// arrays, so both shapes decode.
func (c *Client) foundUsers(frame Frame, cb Callbacks) {
	if cb.OnFoundUser == nil {
		return
	}

	raw := bytes.TrimSpace(frame.Message)
	if len(raw) > 0 && raw[0] == '[' {
		var wires []model.ProfileWire
		if err := json.Unmarshal(raw, &wires); err != nil {
			c.logger.Warn("skipping malformed users_found frame", zap.Error(err))
			return
		}
		for _, w := range wires {
			metrics.ProfilesFoundTotal.Inc()
			cb.OnFoundUser(model.ProfileFromWire(w))
		}
		return
	}

	var wire model.ProfileWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		c.logger.Warn("skipping malformed users_found frame", zap.Error(err))
		return
	}
	metrics.ProfilesFoundTotal.Inc()
	cb.OnFoundUser(model.ProfileFromWire(wire))
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize asks the backend for a one-shot summary of a query.
func (c *Client) Summarize(ctx context.Context, sessionID, query string) (string, error) {
	resp, err := c.post(ctx, c.baseURL+"/summarize", queryRequest{Query: query, SessionID: sessionID})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ServerError{Message: fmt.Sprintf("summarize failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}
	return out.Summary, nil
}

// CreateSession creates a session server-side and returns its id.
func (c *Client) CreateSession(ctx context.Context, userID string) (string, error) {
	resp, err := c.post(ctx, c.sessionURL, model.CreateSessionRequest{UserID: userID})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &ServerError{Message: fmt.Sprintf("create session failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	var out model.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return out.SessionID, nil
}

// ListSessions returns the authenticated user's sessions.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	resp, err := c.get(ctx, c.sessionURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Message: fmt.Sprintf("list sessions failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	var out model.ListSessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	sessions := make([]model.Session, 0, len(out.Sessions))
	for _, w := range out.Sessions {
		sessions = append(sessions, model.SessionFromWire(w))
	}
	return sessions, nil
}

// SessionMessages returns the persisted history for one session. A missing
// session degrades to an empty history.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]model.DraftMessage, error) {
	resp, err := c.get(ctx, c.sessionURL+"/"+sessionID+"/messages")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Message: fmt.Sprintf("load session failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	var out model.ListMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]model.DraftMessage, 0, len(out.Messages))
	for _, w := range out.Messages {
		messages = append(messages, model.MessageFromWire(w))
	}
	return messages, nil
}

// DeleteSession deletes a session server-side.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.sessionURL+"/"+sessionID, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &ServerError{Message: fmt.Sprintf("delete session failed: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	return resp, nil
}
