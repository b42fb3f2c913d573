package service

import (
	"sync"
	"time"
)

const conversationLogLimit = 100

// ConversationEntry captures one answered question for later inspection.
type ConversationEntry struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Answer        string    `json:"answer"`
	Model         string    `json:"model"`
	SubQueries    []string  `json:"sub_queries"`
	SourceCount   int       `json:"source_count"`
	LowConfidence bool      `json:"low_confidence"`
	DurationMs    int       `json:"duration_ms"`
	AskedAt       time.Time `json:"asked_at"`
}

// ConversationLog keeps a bounded in-memory history of answered questions.
// Entries are request metadata only and are never persisted.
type ConversationLog struct {
	mu      sync.Mutex
	entries []ConversationEntry
}

// NewConversationLog creates a new ConversationLog instance
func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// Append records an entry, evicting the oldest once the limit is reached.
func (l *ConversationLog) Append(entry ConversationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > conversationLogLimit {
		l.entries = l.entries[len(l.entries)-conversationLogLimit:]
	}
}

// Entries returns a copy of the history, oldest first.
func (l *ConversationLog) Entries() []ConversationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConversationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
