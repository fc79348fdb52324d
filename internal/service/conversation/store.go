package conversation

import (
	"sync"

	"github.com/zhouzirui/ai-bestie/backend/internal/model/chat"
)

// HistoryLimit bounds each user's conversation window, including the
// turn that was just appended.
const HistoryLimit = 10

// Store keeps a bounded, per-user conversation window in memory.
// Appends for the same user are serialized; different users never
// contend on the same lock.
type Store struct {
	mu        sync.RWMutex
	histories map[string]*history
	limit     int
}

type history struct {
	mu       sync.Mutex
	messages []chat.Message
}

// NewStore bootstraps an empty in-memory store bounded at HistoryLimit.
func NewStore() *Store {
	return NewStoreWithLimit(HistoryLimit)
}

// NewStoreWithLimit builds a store with a custom window size. Values below
// one are treated as one.
func NewStoreWithLimit(limit int) *Store {
	if limit < 1 {
		limit = 1
	}
	return &Store{
		histories: make(map[string]*history),
		limit:     limit,
	}
}

// Append adds message to the end of userID's history, creating the
// history on first use, then drops the oldest entries beyond the limit.
// The returned slice is a copy of the truncated history.
func (s *Store) Append(userID string, message chat.Message) []chat.Message {
	h := s.entry(userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, message)
	if overflow := len(h.messages) - s.limit; overflow > 0 {
		trimmed := make([]chat.Message, s.limit, s.limit+1)
		copy(trimmed, h.messages[overflow:])
		h.messages = trimmed
	}

	return cloneMessages(h.messages)
}

// Get returns a copy of userID's history, or an empty slice.
func (s *Store) Get(userID string) []chat.Message {
	s.mu.RLock()
	h, ok := s.histories[userID]
	s.mu.RUnlock()
	if !ok {
		return []chat.Message{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneMessages(h.messages)
}

// Len reports how many users currently have a history.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}

func (s *Store) entry(userID string) *history {
	s.mu.RLock()
	h, ok := s.histories[userID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.histories[userID]; ok {
		return h
	}
	h = &history{messages: make([]chat.Message, 0, s.limit+1)}
	s.histories[userID] = h
	return h
}

func cloneMessages(messages []chat.Message) []chat.Message {
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied
}
