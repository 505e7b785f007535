package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circl-ai/circl/internal/astralis"
	"github.com/circl-ai/circl/pkg/logger"
)

// newBackend stands in for the astralis and session services during manager
// tests.
func newBackend(t *testing.T, handler http.HandlerFunc) *astralis.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return astralis.New(srv.URL, srv.URL, srv.Client(), logger.NewNop())
}

func TestManagerSendStreamsIntoReducer(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		fmt.Fprint(w, "data: {\"type\":\"thought\",\"message\":\"Search\"}\n"+
			"data: {\"type\":\"thought\",\"message\":\"ing\"}\n"+
			"data: {\"type\":\"users_found\",\"message\":{\"name\":\"Sarah Chen\"}}\n"+
			"data: {\"type\":\"response\",\"message\":\"One match.\"}\n"+
			"data: {\"type\":\"end\"}\n")
	})

	var echoed string
	m := NewManager(client, logger.NewNop(), Hooks{
		OnResponse: func(fragment string) { echoed += fragment },
	})

	err := m.Send(context.Background(), "sess-1", "find data scientists")
	require.NoError(t, err)

	messages := m.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "find data scientists", messages[0].Content)
	assert.Equal(t, "Searching", messages[1].ThinkingText)
	assert.Equal(t, "One match.", messages[2].Content)
	assert.Equal(t, "One match.", echoed)

	profiles := m.Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "Sarah Chen", profiles[0].Name)

	assert.False(t, m.Busy("sess-1"))
}

func TestManagerSendKeepsPartialFragmentsOnError(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"thought\",\"message\":\"partial\"}\n"+
			"data: {\"type\":\"error\",\"message\":\"backend unavailable\"}\n")
	})

	var statuses []string
	m := NewManager(client, logger.NewNop(), Hooks{
		OnStatus: func(s string) { statuses = append(statuses, s) },
	})

	err := m.Send(context.Background(), "sess-1", "query")
	require.Error(t, err)

	var serverErr *astralis.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "backend unavailable", serverErr.Message)

	// The user message and the partial thought survive the failure.
	messages := m.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "partial", messages[1].ThinkingText)

	require.NotEmpty(t, statuses)
	assert.True(t, strings.HasPrefix(statuses[len(statuses)-1], "Error:"))

	// The busy guard is released after a failed send.
	assert.False(t, m.Busy("sess-1"))
}

func TestManagerSendRejectsConcurrentSendPerSession(t *testing.T) {
	m := NewManager(nil, logger.NewNop(), Hooks{})

	require.NoError(t, m.acquire("sess-1"))

	err := m.Send(context.Background(), "sess-1", "second message")
	assert.ErrorIs(t, err, ErrSendInFlight)

	// Other sessions are unaffected by the guard.
	require.NoError(t, m.acquire("sess-2"))
	m.release("sess-2")

	m.release("sess-1")
	assert.False(t, m.Busy("sess-1"))
}

func TestManagerSendSetsTitleFromFirstMessage(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"end\"}\n")
	})

	m := NewManager(client, logger.NewNop(), Hooks{})
	m.Store().Add(sessionAt("sess-1", time.Now()))

	long := strings.Repeat("x", 80)
	require.NoError(t, m.Send(context.Background(), "sess-1", long))

	title := m.Store().Sessions()[0].Title
	assert.Equal(t, strings.Repeat("x", titleLimit)+"...", title)

	// A later send does not overwrite the derived title.
	require.NoError(t, m.Send(context.Background(), "sess-1", "different query"))
	assert.Equal(t, strings.Repeat("x", titleLimit)+"...", m.Store().Sessions()[0].Title)
}

func TestManagerStartSessionRegistersAndActivates(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"session_id":"s-new"}`)
	})

	m := NewManager(client, logger.NewNop(), Hooks{})

	id, err := m.StartSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "s-new", id)
	assert.Equal(t, "s-new", m.Store().ActiveID())
	require.Len(t, m.Store().Sessions(), 1)
	assert.Empty(t, m.Store().Sessions()[0].Title)
}

func TestManagerSelectSessionLoadsHistory(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/s-old/messages", r.URL.Path)
		fmt.Fprint(w, `{"messages":[{"message_id":"m1","session_id":"s-old","role":"user","content":"hello","created_at":"2025-06-01T10:00:00Z"}]}`)
	})

	m := NewManager(client, logger.NewNop(), Hooks{})

	require.NoError(t, m.SelectSession(context.Background(), "s-old"))
	assert.Equal(t, "s-old", m.Store().ActiveID())

	messages := m.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
}

func TestManagerDeleteSessionIsOptimistic(t *testing.T) {
	var deletes atomic.Int32
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		deletes.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	m := NewManager(client, logger.NewNop(), Hooks{})
	m.Store().Add(sessionAt("s1", time.Now()))
	m.Store().SetActive("s1")
	m.reducer.AppendUser("s1", "something")

	m.DeleteSession(context.Background(), "s1")

	// Local state is gone even though the server delete failed.
	assert.Empty(t, m.Store().Sessions())
	assert.Empty(t, m.Store().ActiveID())
	assert.Empty(t, m.Messages())
	assert.Equal(t, int32(1), deletes.Load())
}

func TestManagerLoadSessionsDegradesOnFailure(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	m := NewManager(client, logger.NewNop(), Hooks{})
	m.Store().Add(sessionAt("local-only", time.Now()))

	m.LoadSessions(context.Background())

	// The locally-known list survives a fetch failure.
	sessions := m.Store().Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "local-only", sessions[0].SessionID)
}

func TestManagerComposeNewClearsActiveAndMessages(t *testing.T) {
	m := NewManager(nil, logger.NewNop(), Hooks{})
	m.Store().Add(sessionAt("s1", time.Now()))
	m.Store().SetActive("s1")
	m.reducer.AppendUser("s1", "hi")

	m.ComposeNew()

	assert.Empty(t, m.Store().ActiveID())
	assert.Empty(t, m.Messages())
	require.Len(t, m.Store().Sessions(), 1)
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "short", truncateTitle("  short  "))
	assert.Equal(t, strings.Repeat("a", titleLimit)+"...", truncateTitle(strings.Repeat("a", titleLimit+1)))

	// Multi-byte runes are never split.
	title := truncateTitle(strings.Repeat("é", titleLimit+10))
	assert.Equal(t, strings.Repeat("é", titleLimit)+"...", title)
}
