package ask

import (
	"context"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/conversation"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/providers"
)

func testLibrary(t *testing.T) (*library.Store, *library.Book) {
	t.Helper()
	lib := library.NewStore()
	book := library.NewBook("Anatomy", []library.Page{
		{Number: 1, Text: "the skeleton", Image: []byte{0x01}},
		{Number: 2, Text: "X is Y", Image: []byte{0x02}},
		{Number: 3, Text: "the muscles", Image: []byte{0x03}},
	})
	lib.AddBooks(book)
	return lib, book
}

func testRequester(lib *library.Store, log *conversation.Log, mock *providers.MockClient) *Requester {
	registry := providers.NewRegistry()
	registry.RegisterLLM("mock", mock)
	return NewRequester(Options{
		Library:  lib,
		Log:      log,
		Registry: registry,
		Provider: "mock",
	})
}

func TestBuildRequest(t *testing.T) {
	lib, book := testLibrary(t)
	turns := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "earlier question"},
		{Role: conversation.RoleAssistant, Content: "earlier answer"},
	}

	req := BuildRequest("define X", lib.Books(), turns)

	if req.Temperature != 0 || req.TopP != 1 || req.TopK != 1 {
		t.Errorf("sampling not deterministic: temp=%v topp=%v topk=%v", req.Temperature, req.TopP, req.TopK)
	}

	// system + 2 prior turns + final user message
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("first message role = %s", req.Messages[0].Role)
	}
	if req.Messages[1].Content != "earlier question" || req.Messages[2].Content != "earlier answer" {
		t.Error("prior turns not carried in order")
	}

	final := req.Messages[3]
	if final.Role != "user" {
		t.Errorf("final message role = %s", final.Role)
	}
	// One text and one image part per page, plus the question part.
	wantParts := book.PageCount()*2 + 1
	if len(final.Parts) != wantParts {
		t.Fatalf("expected %d parts, got %d", wantParts, len(final.Parts))
	}

	// Text and image parts interleave per page.
	if !strings.Contains(final.Parts[0].Text, `"Anatomy"`) || !strings.Contains(final.Parts[0].Text, "Page 1 of 3") {
		t.Errorf("unexpected first text part: %q", final.Parts[0].Text)
	}
	if final.Parts[1].Image == nil || final.Parts[1].MIME != "image/jpeg" {
		t.Errorf("expected image part after page text, got %+v", final.Parts[1])
	}

	last := final.Parts[len(final.Parts)-1]
	if !strings.Contains(last.Text, "define X") {
		t.Errorf("question missing from final part: %q", last.Text)
	}
}

func TestBuildRequestSkipsMissingImages(t *testing.T) {
	lib := library.NewStore()
	lib.AddBooks(library.NewBook("TextOnly", []library.Page{{Number: 1, Text: "words"}}))

	req := BuildRequest("q", lib.Books(), nil)
	final := req.Messages[len(req.Messages)-1]
	// page text + question, no image part
	if len(final.Parts) != 2 {
		t.Errorf("expected 2 parts, got %d", len(final.Parts))
	}
}

func TestAsk(t *testing.T) {
	t.Run("answer with citations navigates to first reference", func(t *testing.T) {
		lib, book := testLibrary(t)
		log := conversation.NewLog()
		mock := providers.NewMockClient()
		mock.ResponseText = `X is Y (Book: "Anatomy", Page: 2). VISUAL_REFERENCES: [Book: "Anatomy", Page: 2]`

		r := testRequester(lib, log, mock)
		answer, err := r.Ask(context.Background(), "define X")
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}

		if answer.Question.Content != "define X" || answer.Question.Role != conversation.RoleUser {
			t.Errorf("unexpected question message: %+v", answer.Question)
		}
		if answer.Response.Content != `X is Y (Book: "Anatomy", Page: 2).` {
			t.Errorf("unexpected display content: %q", answer.Response.Content)
		}
		if len(answer.Response.References) != 1 || answer.Response.References[0].Page != 2 {
			t.Errorf("unexpected references: %v", answer.Response.References)
		}
		if answer.Navigation == nil || answer.Navigation.BookID != book.ID || answer.Navigation.Page != 2 {
			t.Errorf("unexpected navigation: %+v", answer.Navigation)
		}
		if log.Len() != 2 {
			t.Errorf("expected 2 appended messages, got %d", log.Len())
		}
	})

	t.Run("provider error swallowed into fallback", func(t *testing.T) {
		lib, _ := testLibrary(t)
		log := conversation.NewLog()
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		r := testRequester(lib, log, mock)
		answer, err := r.Ask(context.Background(), "define X")
		if err != nil {
			t.Fatalf("provider failure must not propagate: %v", err)
		}
		if answer.Response.Content != FallbackLLMError {
			t.Errorf("unexpected fallback: %q", answer.Response.Content)
		}
		if len(answer.Response.References) != 0 {
			t.Errorf("fallback must carry no references: %v", answer.Response.References)
		}
		if answer.Navigation != nil {
			t.Errorf("fallback must not navigate: %+v", answer.Navigation)
		}
	})

	t.Run("empty answer becomes no-answer fallback", func(t *testing.T) {
		lib, _ := testLibrary(t)
		log := conversation.NewLog()
		mock := providers.NewMockClient()
		mock.ResponseText = ""

		r := testRequester(lib, log, mock)
		answer, err := r.Ask(context.Background(), "define X")
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if answer.Response.Content != FallbackNoAnswer {
			t.Errorf("unexpected fallback: %q", answer.Response.Content)
		}
	})

	t.Run("empty library rejected", func(t *testing.T) {
		r := testRequester(library.NewStore(), conversation.NewLog(), providers.NewMockClient())
		if _, err := r.Ask(context.Background(), "anything"); err != ErrEmptyLibrary {
			t.Errorf("expected ErrEmptyLibrary, got %v", err)
		}
	})

	t.Run("unknown provider errors", func(t *testing.T) {
		lib, _ := testLibrary(t)
		r := NewRequester(Options{
			Library:  lib,
			Log:      conversation.NewLog(),
			Registry: providers.NewRegistry(),
			Provider: "missing",
		})
		if _, err := r.Ask(context.Background(), "q"); err == nil {
			t.Error("expected error for unregistered provider")
		}
	})

	t.Run("prior turns reach the model", func(t *testing.T) {
		lib, _ := testLibrary(t)
		log := conversation.NewLog()
		log.Append(conversation.RoleUser, "first question", nil)
		log.Append(conversation.RoleAssistant, "first answer", nil)
		mock := providers.NewMockClient()

		r := testRequester(lib, log, mock)
		if _, err := r.Ask(context.Background(), "followup"); err != nil {
			t.Fatalf("Ask: %v", err)
		}

		req := mock.LastRequest()
		if req == nil {
			t.Fatal("mock saw no request")
		}
		// system + 2 prior turns + final
		if len(req.Messages) != 4 {
			t.Errorf("expected 4 messages, got %d", len(req.Messages))
		}
	})

	t.Run("in flight flag clears after answer", func(t *testing.T) {
		lib, _ := testLibrary(t)
		r := testRequester(lib, conversation.NewLog(), providers.NewMockClient())
		if _, err := r.Ask(context.Background(), "q"); err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if r.InFlight() {
			t.Error("in-flight flag stuck after completion")
		}
	})
}
