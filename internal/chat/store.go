// Package chat holds the client-side conversation state: the session list,
// the active session pointer, and the streaming message reducer.
package chat

import (
	"sort"
	"sync"

	"github.com/circl-ai/circl/internal/model"
)

// Store maintains the ordered session list and the active-session pointer.
// Writes come from one caller at a time; reads may come from a render loop.
type Store struct {
	mu       sync.RWMutex
	sessions []model.Session
	activeID string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Add inserts a session at the head and re-sorts the full list by creation
// time descending. Sorting the whole list tolerates out-of-order arrivals
// from concurrent loads.
func (s *Store) Add(session model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append([]model.Session{session}, s.sessions...)
	sortSessions(s.sessions)
}

// Merge folds fetched sessions into the local list, keyed by session id.
// Fetched fields win, except that an empty fetched title never clears a
// title already known locally: titles are set once and never revert.
func (s *Store) Merge(fetched []model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]int, len(s.sessions))
	for i, local := range s.sessions {
		byID[local.SessionID] = i
	}

	for _, f := range fetched {
		i, ok := byID[f.SessionID]
		if !ok {
			s.sessions = append(s.sessions, f)
			continue
		}
		if f.Title == "" {
			f.Title = s.sessions[i].Title
		}
		s.sessions[i] = f
	}

	sortSessions(s.sessions)
}

// SetTitle patches a session title in place. Empty titles are ignored and a
// title already set is kept, so the patch is monotonic.
func (s *Store) SetTitle(sessionID, title string) {
	if title == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].SessionID == sessionID {
			if s.sessions[i].Title == "" {
				s.sessions[i].Title = title
			}
			return
		}
	}
}

// Remove deletes a session from the list and reports whether it was active.
// An active removal also clears the active pointer.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	for _, session := range s.sessions {
		if session.SessionID != sessionID {
			kept = append(kept, session)
		}
	}
	s.sessions = kept

	if s.activeID == sessionID {
		s.activeID = ""
		return true
	}
	return false
}

// SetActive sets the active session pointer. An empty id means the composer
// view with no session selected.
func (s *Store) SetActive(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = sessionID
}

// ActiveID returns the active session id, or empty.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns the active session, if any.
func (s *Store) Active() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.SessionID == s.activeID {
			return session, true
		}
	}
	return model.Session{}, false
}

// Sessions returns a copy of the list, newest first.
func (s *Store) Sessions() []model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
