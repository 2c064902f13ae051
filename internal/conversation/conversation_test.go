package conversation

import (
	"testing"

	"github.com/jackzampolin/lectern/internal/citation"
	"github.com/jackzampolin/lectern/internal/library"
)

func TestLogAppend(t *testing.T) {
	t.Run("messages accumulate in order", func(t *testing.T) {
		l := NewLog()
		l.Append(RoleUser, "question one", nil)
		l.Append(RoleAssistant, "answer one", nil)
		l.Append(RoleUser, "question two", nil)

		msgs := l.Messages()
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
			t.Errorf("roles out of order: %v %v", msgs[0].Role, msgs[1].Role)
		}
		if msgs[0].ID == msgs[1].ID {
			t.Error("message IDs must be unique")
		}
		if msgs[0].CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
	})

	t.Run("assistant message with references returns navigation", func(t *testing.T) {
		l := NewLog()
		refs := []citation.Reference{
			{BookID: "id-a", BookTitle: "A", Page: 2},
			{BookID: "id-b", BookTitle: "B", Page: 5},
		}
		msg, nav := l.Append(RoleAssistant, "see page 2", refs)

		if nav == nil {
			t.Fatal("expected navigation command")
		}
		if nav.BookID != "id-a" || nav.Page != 2 {
			t.Errorf("navigation should target first reference: %+v", nav)
		}
		if len(msg.References) != 2 {
			t.Errorf("references not carried: %v", msg.References)
		}
	})

	t.Run("no navigation without references", func(t *testing.T) {
		l := NewLog()
		if _, nav := l.Append(RoleAssistant, "no citations", nil); nav != nil {
			t.Errorf("unexpected navigation: %+v", nav)
		}
	})

	t.Run("no navigation for user messages", func(t *testing.T) {
		l := NewLog()
		refs := []citation.Reference{{BookID: "id-a", Page: 1}}
		if _, nav := l.Append(RoleUser, "q", refs); nav != nil {
			t.Errorf("unexpected navigation: %+v", nav)
		}
	})
}

func TestLogTurns(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "q", nil)
	l.Append(RoleAssistant, "a", []citation.Reference{{BookID: "id-a", Page: 1}})

	turns := l.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "a" {
		t.Errorf("unexpected turn: %+v", turns[1])
	}
}

func TestValidReferences(t *testing.T) {
	lib := library.NewStore()
	book := library.NewBook("Anatomy", []library.Page{
		{Number: 1}, {Number: 2}, {Number: 3},
	})
	lib.AddBooks(book)

	msg := Message{References: []citation.Reference{
		{BookID: book.ID, BookTitle: "Anatomy", Page: 2},
		{BookID: book.ID, BookTitle: "Anatomy", Page: 9},
		{BookID: "gone", BookTitle: "Removed", Page: 1},
	}}

	valid := ValidReferences(msg, lib)
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid reference, got %v", valid)
	}
	if valid[0].Page != 2 {
		t.Errorf("unexpected surviving reference: %+v", valid[0])
	}

	t.Run("all stale after removal", func(t *testing.T) {
		if err := lib.RemoveBook(book.ID); err != nil {
			t.Fatalf("RemoveBook: %v", err)
		}
		if got := ValidReferences(msg, lib); len(got) != 0 {
			t.Errorf("expected no valid references, got %v", got)
		}
	})
}
