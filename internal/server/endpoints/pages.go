package endpoints

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// PageImageEndpoint handles GET /api/books/{book_id}/pages/{page_num}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{book_id}/pages/{page_num}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromRequest(w, r)
	if !ok {
		return
	}
	if len(page.Image) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no image for page %d", page.Number))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	http.ServeContent(w, r, fmt.Sprintf("page_%04d.jpg", page.Number), time.Time{}, bytes.NewReader(page.Image))
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}

// PageResponse is the text view of a page.
type PageResponse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// GetPageEndpoint handles GET /api/books/{book_id}/pages/{page_num}.
type GetPageEndpoint struct{}

var _ api.Endpoint = (*GetPageEndpoint)(nil)

func (e *GetPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{book_id}/pages/{page_num}", e.handler
}

func (e *GetPageEndpoint) RequiresInit() bool { return true }

func (e *GetPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Number: page.Number, Text: page.Text})
}

func (e *GetPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page <book-id> <page-num>",
		Short: "Get a page's extracted text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PageResponse
			path := fmt.Sprintf("/api/books/%s/pages/%s", args[0], args[1])
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// pageFromRequest resolves the book and page named in the path, writing
// the error response itself when resolution fails.
func pageFromRequest(w http.ResponseWriter, r *http.Request) (library.Page, bool) {
	bookID := r.PathValue("book_id")
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return library.Page{}, false
	}

	pageNum, err := strconv.Atoi(r.PathValue("page_num"))
	if err != nil || pageNum < 1 {
		writeError(w, http.StatusBadRequest, "page_num must be a positive integer")
		return library.Page{}, false
	}

	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return library.Page{}, false
	}

	book, ok := lib.Get(bookID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("book not found: %s", bookID))
		return library.Page{}, false
	}

	page, ok := book.Page(pageNum)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d not found", pageNum))
		return library.Page{}, false
	}
	return page, true
}
