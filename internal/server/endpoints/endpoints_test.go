package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/ask"
	"github.com/jackzampolin/lectern/internal/conversation"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// testEnv wires a full endpoint mux around in-memory services and a mock
// LLM client.
type testEnv struct {
	handler http.Handler
	lib     *library.Store
	log     *conversation.Log
	mock    *providers.MockClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	lib := library.NewStore()
	log := conversation.NewLog()
	mock := providers.NewMockClient()
	registry := providers.NewRegistry()
	registry.RegisterLLM("mock", mock)

	requester := ask.NewRequester(ask.Options{
		Library:  lib,
		Log:      log,
		Registry: registry,
		Provider: "mock",
	})

	services := &svcctx.Services{
		Library:      lib,
		Conversation: log,
		Requester:    requester,
		Registry:     registry,
	}

	epRegistry := api.NewRegistry()
	for _, ep := range All() {
		epRegistry.Register(ep)
	}

	// Services wrap the whole mux, mirroring the production server; the
	// init middleware is a pass-through since the test env is always ready.
	mux := http.NewServeMux()
	epRegistry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return next
	})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})

	return &testEnv{handler: handler, lib: lib, log: log, mock: mock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func anatomyBook() *library.Book {
	return library.NewBook("Anatomy", []library.Page{
		{Number: 1, Text: "the skeleton", Image: []byte{0xff, 0xd8, 0x01}},
		{Number: 2, Text: "X is Y", Image: []byte{0xff, 0xd8, 0x02}},
		{Number: 3, Text: "the muscles", Image: []byte{0xff, 0xd8, 0x03}},
	})
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if h := decode[HealthResponse](t, rec); h.Status != "ok" {
		t.Errorf("health = %+v", h)
	}

	env.lib.AddBooks(anatomyBook())
	env.log.Append(conversation.RoleUser, "q", nil)

	rec = env.do(t, "GET", "/status", nil)
	status := decode[StatusResponse](t, rec)
	if status.Server != "running" || status.Books != 1 || status.Messages != 1 || status.Asking {
		t.Errorf("unexpected status: %+v", status)
	}
	if len(status.Providers) != 1 || status.Providers[0] != "mock" {
		t.Errorf("unexpected providers: %v", status.Providers)
	}
}

func TestBookEndpoints(t *testing.T) {
	env := newTestEnv(t)
	book := anatomyBook()
	env.lib.AddBooks(book)

	t.Run("list", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/books", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[ListBooksResponse](t, rec)
		if resp.Total != 1 || resp.Books[0].Title != "Anatomy" || resp.Books[0].PageCount != 3 {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/books/"+book.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[GetBookResponse](t, rec)
		if resp.ID != book.ID || len(resp.Pages) != 3 {
			t.Errorf("unexpected response: %+v", resp)
		}
		if !resp.Pages[1].HasImage || resp.Pages[1].TextLen != len("X is Y") {
			t.Errorf("unexpected page summary: %+v", resp.Pages[1])
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		if rec := env.do(t, "GET", "/api/books/nope", nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("page text", func(t *testing.T) {
		rec := env.do(t, "GET", fmt.Sprintf("/api/books/%s/pages/2", book.ID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		page := decode[PageResponse](t, rec)
		if page.Number != 2 || page.Text != "X is Y" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("page image", func(t *testing.T) {
		rec := env.do(t, "GET", fmt.Sprintf("/api/books/%s/pages/2/image", book.ID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %q", ct)
		}
		if !bytes.Equal(rec.Body.Bytes(), []byte{0xff, 0xd8, 0x02}) {
			t.Errorf("unexpected image bytes: %v", rec.Body.Bytes())
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		if rec := env.do(t, "GET", fmt.Sprintf("/api/books/%s/pages/99", book.ID), nil); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if rec := env.do(t, "DELETE", "/api/books/"+book.ID, nil); rec.Code != http.StatusNoContent {
			t.Errorf("status = %d", rec.Code)
		}
		if rec := env.do(t, "DELETE", "/api/books/"+book.ID, nil); rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d", rec.Code)
		}
	})
}

func TestSelectionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	book := anatomyBook()
	env.lib.AddBooks(book)

	t.Run("get initial", func(t *testing.T) {
		rec := env.do(t, "GET", "/api/selection", nil)
		sel := decode[library.Selection](t, rec)
		if sel.BookID != book.ID || sel.Page != 1 {
			t.Errorf("unexpected selection: %+v", sel)
		}
	})

	t.Run("put clamps page", func(t *testing.T) {
		rec := env.do(t, "PUT", "/api/selection", library.Selection{BookID: book.ID, Page: 99})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		sel := decode[library.Selection](t, rec)
		if sel.Page != 3 {
			t.Errorf("page not clamped: %+v", sel)
		}
	})

	t.Run("put unknown book", func(t *testing.T) {
		rec := env.do(t, "PUT", "/api/selection", library.Selection{BookID: "missing", Page: 1})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestAskEndpoint(t *testing.T) {
	t.Run("answer with citation moves selection", func(t *testing.T) {
		env := newTestEnv(t)
		book := anatomyBook()
		env.lib.AddBooks(book)
		env.mock.ResponseText = `X is Y (Book: "Anatomy", Page: 2). VISUAL_REFERENCES: [Book: "Anatomy", Page: 2]`

		rec := env.do(t, "POST", "/api/ask", AskRequest{Question: "define X"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}

		answer := decode[ask.Answer](t, rec)
		if answer.Response.Content != `X is Y (Book: "Anatomy", Page: 2).` {
			t.Errorf("unexpected display: %q", answer.Response.Content)
		}
		if len(answer.Response.References) != 1 || answer.Response.References[0].Page != 2 {
			t.Errorf("unexpected references: %v", answer.Response.References)
		}

		sel := env.lib.Selection()
		if sel.BookID != book.ID || sel.Page != 2 {
			t.Errorf("selection did not follow the citation: %+v", sel)
		}
		if env.log.Len() != 2 {
			t.Errorf("log length = %d", env.log.Len())
		}
	})

	t.Run("blank question rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.lib.AddBooks(anatomyBook())

		rec := env.do(t, "POST", "/api/ask", AskRequest{Question: "   "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("empty library rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, "POST", "/api/ask", AskRequest{Question: "anything"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("provider failure still answers", func(t *testing.T) {
		env := newTestEnv(t)
		env.lib.AddBooks(anatomyBook())
		env.mock.ShouldFail = true

		rec := env.do(t, "POST", "/api/ask", AskRequest{Question: "define X"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		answer := decode[ask.Answer](t, rec)
		if answer.Response.Content != ask.FallbackLLMError {
			t.Errorf("unexpected content: %q", answer.Response.Content)
		}
	})
}

func TestMessagesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	book := anatomyBook()
	env.lib.AddBooks(book)
	env.mock.ResponseText = `See the figure (Book: "Anatomy", Page: 3). VISUAL_REFERENCES: [Book: "Anatomy", Page: 3]`

	if rec := env.do(t, "POST", "/api/ask", AskRequest{Question: "show me"}); rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d", rec.Code)
	}

	rec := env.do(t, "GET", "/api/messages", nil)
	resp := decode[MessagesResponse](t, rec)
	if resp.Total != 2 {
		t.Fatalf("total = %d", resp.Total)
	}
	if resp.Messages[0].Role != conversation.RoleUser || resp.Messages[1].Role != conversation.RoleAssistant {
		t.Errorf("roles out of order: %+v", resp.Messages)
	}
	if len(resp.Messages[1].References) != 1 {
		t.Fatalf("references = %v", resp.Messages[1].References)
	}
	if resp.Messages[1].CreatedAt == "" || !strings.Contains(resp.Messages[1].CreatedAt, "T") {
		t.Errorf("CreatedAt not RFC3339: %q", resp.Messages[1].CreatedAt)
	}

	t.Run("references filtered after removal", func(t *testing.T) {
		if rec := env.do(t, "DELETE", "/api/books/"+book.ID, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec := env.do(t, "GET", "/api/messages", nil)
		resp := decode[MessagesResponse](t, rec)
		if len(resp.Messages[1].References) != 0 {
			t.Errorf("stale references survived: %v", resp.Messages[1].References)
		}
	})
}
