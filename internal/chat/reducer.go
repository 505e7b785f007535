package chat

import (
	"sync"
	"time"

	"github.com/circl-ai/circl/internal/model"
)

// fragmentKind tags which of the two per-request assistant messages a
// streamed fragment belongs to.
type fragmentKind int

const (
	kindThought fragmentKind = iota
	kindResponse
)

// correlationKey routes a fragment to its in-progress message. The composite
// key replaces the ad-hoc "<id>_thought"/"response_<id>" string scheme.
type correlationKey struct {
	id   string
	kind fragmentKind
}

// FoundUsersFunc is notified after each users_found event with the full
// accumulated list, not a delta. Each call is the authoritative current set.
type FoundUsersFunc func(profiles []model.Profile)

// Reducer turns streamed fragments into an ordered, incrementally-updated
// message list plus a side list of discovered profiles. Fragments received
// before an error stay applied; partial results are kept.
type Reducer struct {
	mu       sync.Mutex
	messages []model.DraftMessage
	index    map[correlationKey]int
	found    []model.Profile
	onFound  FoundUsersFunc
	now      func() time.Time
}

// NewReducer creates a reducer. onFound may be nil.
func NewReducer(onFound FoundUsersFunc) *Reducer {
	return &Reducer{
		index:   make(map[correlationKey]int),
		onFound: onFound,
		now:     time.Now,
	}
}

// Reset replaces the message list with persisted history and clears all
// in-progress accumulation and search results. Called on session switch.
func (r *Reducer) Reset(history []model.DraftMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append([]model.DraftMessage(nil), history...)
	r.index = make(map[correlationKey]int)
	r.found = nil
}

// AppendUser appends a user message.
func (r *Reducer) AppendUser(sessionID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, model.DraftMessage{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: r.now(),
	})
}

// ApplyThought extends the thinking placeholder for one request. The first
// fragment creates the message; later fragments concatenate in place.
func (r *Reducer) ApplyThought(correlationID, sessionID, fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := correlationKey{id: correlationID, kind: kindThought}
	if i, ok := r.index[key]; ok {
		r.messages[i].ThinkingText += fragment
		return
	}

	r.index[key] = len(r.messages)
	r.messages = append(r.messages, model.DraftMessage{
		SessionID:    sessionID,
		Role:         model.RoleAssistant,
		CreatedAt:    r.now(),
		IsThinking:   true,
		ThinkingText: fragment,
	})
}

// ApplyResponse extends the final assistant message for one request. It is a
// separate message from the thought placeholder with the same correlation id.
func (r *Reducer) ApplyResponse(correlationID, sessionID, fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := correlationKey{id: correlationID, kind: kindResponse}
	if i, ok := r.index[key]; ok {
		r.messages[i].Content += fragment
		return
	}

	r.index[key] = len(r.messages)
	r.messages = append(r.messages, model.DraftMessage{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   fragment,
		CreatedAt: r.now(),
	})
}

// AddProfile appends a discovered profile and notifies the subscriber with
// the full accumulated list. Duplicates across repeated events are kept; the
// backend owns de-duplication.
func (r *Reducer) AddProfile(p model.Profile) {
	r.mu.Lock()
	r.found = append(r.found, p)
	snapshot := make([]model.Profile, len(r.found))
	copy(snapshot, r.found)
	notify := r.onFound
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// ClearProfiles drops accumulated search results. Called on session switch.
func (r *Reducer) ClearProfiles() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = nil
}

// Messages returns a copy of the current message list.
func (r *Reducer) Messages() []model.DraftMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.DraftMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Profiles returns a copy of the accumulated search results.
func (r *Reducer) Profiles() []model.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Profile, len(r.found))
	copy(out, r.found)
	return out
}
