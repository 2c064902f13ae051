package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// GetBookResponse is a book with per-page text lengths but no payloads.
type GetBookResponse struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	PageCount int           `json:"page_count"`
	Pages     []PageSummary `json:"pages"`
}

// PageSummary is a brief summary of a page.
type PageSummary struct {
	Number   int  `json:"number"`
	TextLen  int  `json:"text_len"`
	HasImage bool `json:"has_image"`
}

// GetBookEndpoint handles GET /api/books/{book_id}.
type GetBookEndpoint struct{}

var _ api.Endpoint = (*GetBookEndpoint)(nil)

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{book_id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("book_id")
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	book, ok := lib.Get(bookID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("book not found: %s", bookID))
		return
	}

	resp := GetBookResponse{
		ID:        book.ID,
		Title:     book.Title,
		PageCount: book.PageCount(),
	}
	for _, p := range book.Pages {
		resp.Pages = append(resp.Pages, PageSummary{
			Number:   p.Number,
			TextLen:  len(p.Text),
			HasImage: len(p.Image) > 0,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "book <book-id>",
		Short: "Get a book's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp GetBookResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
