package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/circl-ai/circl/internal/astralis"
	"github.com/circl-ai/circl/internal/model"
	"github.com/circl-ai/circl/pkg/logger"
)

// ErrSendInFlight is returned when a send is attempted on a session that is
// already streaming a response.
var ErrSendInFlight = errors.New("a message is already streaming for this session")

// titleLimit caps the placeholder title derived from the first query.
const titleLimit = 50

// Hooks are optional render callbacks. Fragments still accumulate in the
// reducer; hooks exist so a live view can echo them as they arrive.
type Hooks struct {
	OnThought  func(fragment string)
	OnResponse func(fragment string)
	OnFound    FoundUsersFunc
	OnStatus   func(status string)
}

// Manager drives the chat session lifecycle: it owns the session store and
// the reducer for the active session, and orchestrates calls to the search
// backend. All state it exposes is copied on read.
type Manager struct {
	store   *Store
	reducer *Reducer
	client  *astralis.Client
	logger  *logger.Logger
	hooks   Hooks

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewManager creates a chat manager.
func NewManager(client *astralis.Client, log *logger.Logger, hooks Hooks) *Manager {
	return &Manager{
		store:    NewStore(),
		reducer:  NewReducer(hooks.OnFound),
		client:   client,
		logger:   log,
		hooks:    hooks,
		inFlight: make(map[string]bool),
	}
}

// Store exposes the session store for rendering.
func (m *Manager) Store() *Store {
	return m.store
}

// Messages returns the active session's message list.
func (m *Manager) Messages() []model.DraftMessage {
	return m.reducer.Messages()
}

// Profiles returns the accumulated search results.
func (m *Manager) Profiles() []model.Profile {
	return m.reducer.Profiles()
}

// LoadSessions fetches the server's session list and merges it into the
// local store. A network failure degrades to the locally-known list rather
// than surfacing an error.
func (m *Manager) LoadSessions(ctx context.Context) {
	sessions, err := m.client.ListSessions(ctx)
	if err != nil {
		m.logger.Warn("failed to load sessions", zap.Error(err))
		return
	}
	m.store.Merge(sessions)
}

// ComposeNew clears the active session and in-memory messages, leaving the
// session list untouched. The caller lands on the composer view.
func (m *Manager) ComposeNew() {
	m.store.SetActive("")
	m.reducer.Reset(nil)
}

// StartSession creates a session server-side, registers it locally with an
// empty title, and makes it active.
func (m *Manager) StartSession(ctx context.Context, userID string) (string, error) {
	sessionID, err := m.client.CreateSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	m.store.Add(model.Session{
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: m.reducer.now(),
	})
	m.store.SetActive(sessionID)
	m.reducer.Reset(nil)

	m.logger.WithSession(sessionID, userID).Info("session created")
	return sessionID, nil
}

// SelectSession makes a session active, clears pending search results, and
// reloads its persisted history from the server.
func (m *Manager) SelectSession(ctx context.Context, sessionID string) error {
	m.store.SetActive(sessionID)

	history, err := m.client.SessionMessages(ctx, sessionID)
	if err != nil {
		m.reducer.Reset(nil)
		return fmt.Errorf("load session history: %w", err)
	}

	m.reducer.Reset(history)
	return nil
}

// DeleteSession removes a session from the local list immediately and
// deletes it server-side best-effort. A server-side failure is logged, not
// reconciled back into local state.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) {
	if wasActive := m.store.Remove(sessionID); wasActive {
		m.reducer.Reset(nil)
	}

	if err := m.client.DeleteSession(ctx, sessionID); err != nil {
		m.logger.Warn("server-side session delete failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Send appends the user message and streams the backend's answer into the
// reducer. The correlation id scopes all thought and response fragments of
// this one request. Only one send may be in flight per session.
func (m *Manager) Send(ctx context.Context, sessionID, content string) error {
	if err := m.acquire(sessionID); err != nil {
		return err
	}
	defer m.release(sessionID)

	correlationID := uuid.NewString()
	m.reducer.AppendUser(sessionID, content)
	m.store.SetTitle(sessionID, truncateTitle(content))
	m.status("Processing query...")

	err := m.client.Query(ctx, sessionID, content, astralis.Callbacks{
		OnThought: func(fragment string) {
			m.reducer.ApplyThought(correlationID, sessionID, fragment)
			if m.hooks.OnThought != nil {
				m.hooks.OnThought(fragment)
			}
		},
		OnResponse: func(fragment string) {
			m.reducer.ApplyResponse(correlationID, sessionID, fragment)
			if m.hooks.OnResponse != nil {
				m.hooks.OnResponse(fragment)
			}
		},
		OnFoundUser: m.reducer.AddProfile,
		OnStatus:    m.status,
	})
	if err != nil {
		// Fragments already applied stay visible; partial results are kept.
		m.status("Error: " + err.Error())
		return fmt.Errorf("query stream: %w", err)
	}
	return nil
}

// Summarize asks the backend for a one-shot summary of a query.
func (m *Manager) Summarize(ctx context.Context, sessionID, query string) (string, error) {
	return m.client.Summarize(ctx, sessionID, query)
}

// Busy reports whether a send is in flight for the session.
func (m *Manager) Busy(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight[sessionID]
}

func (m *Manager) acquire(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[sessionID] {
		return ErrSendInFlight
	}
	m.inFlight[sessionID] = true
	return nil
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, sessionID)
}

func (m *Manager) status(s string) {
	if m.hooks.OnStatus != nil {
		m.hooks.OnStatus(s)
	}
}

func truncateTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}
