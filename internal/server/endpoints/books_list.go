package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []BookSummary `json:"books"`
	Total int           `json:"total"`
}

// ListBooksEndpoint handles GET /api/books. Books are returned in upload
// order.
type ListBooksEndpoint struct{}

var _ api.Endpoint = (*ListBooksEndpoint)(nil)

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	resp := ListBooksResponse{Books: []BookSummary{}}
	for _, ref := range lib.Refs() {
		resp.Books = append(resp.Books, BookSummary{ID: ref.ID, Title: ref.Title, PageCount: ref.PageCount})
	}
	resp.Total = len(resp.Books)
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List uploaded books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(cmd.Context(), "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
