// Package conversation keeps the append-only message log and derives
// navigation commands from resolved references.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lectern/internal/citation"
	"github.com/jackzampolin/lectern/internal/library"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Messages are never mutated after
// they are appended.
type Message struct {
	ID         string               `json:"id"`
	Role       Role                 `json:"role"`
	Content    string               `json:"content"`
	References []citation.Reference `json:"references,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Navigation is an explicit command to move the active preview. It is
// returned as data rather than applied as a side effect so the caller
// decides when (and whether) to act on it.
type Navigation struct {
	BookID string `json:"book_id"`
	Page   int    `json:"page"`
}

// Log is the append-only conversation history.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message to the log and returns it with its generated ID
// and timestamp. For assistant messages carrying references, the returned
// Navigation points at the first reference in insertion order; it is nil
// otherwise.
func (l *Log) Append(role Role, content string, refs []citation.Reference) (Message, *Navigation) {
	msg := Message{
		ID:         uuid.New().String(),
		Role:       role,
		Content:    content,
		References: refs,
		CreatedAt:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	if role == RoleAssistant && len(refs) > 0 {
		return msg, &Navigation{BookID: refs[0].BookID, Page: refs[0].Page}
	}
	return msg, nil
}

// Messages returns the full log in append order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Turn is a prior conversation turn as sent to the model: role and
// content only, references stripped.
type Turn struct {
	Role    Role
	Content string
}

// Turns returns the log as model-facing turns.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	turns := make([]Turn, len(l.messages))
	for i, m := range l.messages {
		turns[i] = Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}

// ValidReferences filters a message's references against the current
// library, dropping any whose book has since been removed or whose page
// is out of range. Stale references are skipped, never an error.
func ValidReferences(msg Message, lib *library.Store) []citation.Reference {
	var out []citation.Reference
	for _, r := range msg.References {
		book, ok := lib.Get(r.BookID)
		if !ok {
			continue
		}
		if r.Page < 1 || r.Page > book.PageCount() {
			continue
		}
		out = append(out, r)
	}
	return out
}
