package endpoints

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// RemoveBookEndpoint handles DELETE /api/books/{book_id}. Removing a book
// shifts later books down one position; the active selection is repaired
// if it pointed at the removed book. References in past messages keep
// their stable IDs and simply stop resolving.
type RemoveBookEndpoint struct{}

var _ api.Endpoint = (*RemoveBookEndpoint)(nil)

func (e *RemoveBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{book_id}", e.handler
}

func (e *RemoveBookEndpoint) RequiresInit() bool { return true }

func (e *RemoveBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	if err := lib.RemoveBook(bookID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	// Best effort cleanup of the stored original.
	if homeDir := svcctx.HomeFrom(r.Context()); homeDir != nil {
		_ = os.Remove(homeDir.OriginalPath(bookID))
	}

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("book removed", "book_id", bookID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *RemoveBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/books/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed book %s\n", args[0])
			return nil
		},
	}
}
