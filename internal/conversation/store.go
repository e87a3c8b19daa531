// Package conversation keeps per-participant dialogue state: the system
// prompt fixed at creation plus a bounded, order-preserving history of
// exchanged turns. Contexts are cheap and are kept for the life of the
// process; ending a session clears history but never the prompt.
package conversation

import (
	"sync"

	"dialogd/pkg/types"
)

// DefaultMaxHistory bounds a participant's history when the caller passes
// no explicit limit. Counted in turns, so it holds six full exchanges.
const DefaultMaxHistory = 12

// Context is one participant's accumulated dialogue state. A participant's
// turns are strictly sequential by construction (the orchestrator runs at
// most one converse per participant), so Context itself carries no lock;
// the Store's lock only guards the map.
type Context struct {
	participantID string
	systemPrompt  string
	maxHistory    int
	history       []types.Turn
}

// SystemPrompt returns the prompt fixed at creation.
func (c *Context) SystemPrompt() string { return c.systemPrompt }

// Push appends a turn, then evicts from the front while the history
// exceeds its bound. This is the only mutator of history.
func (c *Context) Push(role types.Role, text string) {
	c.history = append(c.history, types.Turn{Role: role, Text: text})
	for len(c.history) > c.maxHistory {
		c.history = c.history[1:]
	}
}

// Clear empties the history. The system prompt is kept unchanged.
func (c *Context) Clear() {
	c.history = nil
}

// Len returns the current history length in turns.
func (c *Context) Len() int { return len(c.history) }

// Snapshot is a read-only, point-in-time view used for prompt assembly.
type Snapshot struct {
	SystemPrompt string
	History      []types.Turn
}

// Snapshot copies the current state so later pushes cannot leak into a
// prompt already being composed.
func (c *Context) Snapshot() Snapshot {
	h := make([]types.Turn, len(c.history))
	copy(h, c.history)
	return Snapshot{SystemPrompt: c.systemPrompt, History: h}
}

// duplicateParticipantError marks a misuse of Create for an id that
// already has a context; callers wanting upsert semantics use GetOrCreate.
type duplicateParticipantError struct{ id string }

func (e duplicateParticipantError) Error() string { return "participant already exists: " + e.id }

// IsDuplicateParticipant reports whether err came from Create on an
// existing participant.
func IsDuplicateParticipant(err error) bool {
	_, ok := err.(duplicateParticipantError)
	return ok
}

// Store holds every participant's context, keyed by participant id.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

func NewStore() *Store {
	return &Store{contexts: make(map[string]*Context)}
}

func newContext(id, systemPrompt string, maxHistory int) *Context {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Context{participantID: id, systemPrompt: systemPrompt, maxHistory: maxHistory}
}

// Create registers a brand-new participant. Fails if the id is taken.
func (s *Store) Create(id, systemPrompt string, maxHistory int) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[id]; ok {
		return nil, duplicateParticipantError{id: id}
	}
	c := newContext(id, systemPrompt, maxHistory)
	s.contexts[id] = c
	return c, nil
}

// GetOrCreate returns the existing context or builds one via the factory.
// The factory runs at most once per participant for the store's lifetime.
func (s *Store) GetOrCreate(id string, systemPrompt func() string, maxHistory int) *Context {
	s.mu.RLock()
	c, ok := s.contexts[id]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contexts[id]; ok {
		return c
	}
	c = newContext(id, systemPrompt(), maxHistory)
	s.contexts[id] = c
	return c
}

// Get returns the participant's context if one exists.
func (s *Store) Get(id string) (*Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[id]
	return c, ok
}

// Clear wipes the participant's history, keeping the system prompt.
// No-op for unknown participants.
func (s *Store) Clear(id string) {
	s.mu.RLock()
	c, ok := s.contexts[id]
	s.mu.RUnlock()
	if ok {
		c.Clear()
	}
}

// Count returns the number of live contexts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}
