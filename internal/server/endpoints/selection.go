package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// GetSelectionEndpoint handles GET /api/selection. The selection is the
// active preview position: one book, one page.
type GetSelectionEndpoint struct{}

var _ api.Endpoint = (*GetSelectionEndpoint)(nil)

func (e *GetSelectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/selection", e.handler
}

func (e *GetSelectionEndpoint) RequiresInit() bool { return true }

func (e *GetSelectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}
	writeJSON(w, http.StatusOK, lib.Selection())
}

func (e *GetSelectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "selection",
		Short: "Show the active preview selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var sel library.Selection
			if err := client.Get(cmd.Context(), "/api/selection", &sel); err != nil {
				return err
			}
			return api.Output(sel)
		},
	}
}

// SetSelectionEndpoint handles PUT /api/selection. Pages outside the
// book's range are clamped rather than rejected.
type SetSelectionEndpoint struct{}

var _ api.Endpoint = (*SetSelectionEndpoint)(nil)

func (e *SetSelectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/selection", e.handler
}

func (e *SetSelectionEndpoint) RequiresInit() bool { return true }

func (e *SetSelectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var sel library.Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lib := svcctx.LibraryFrom(r.Context())
	if lib == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	if err := lib.SetSelection(sel); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lib.Selection())
}

func (e *SetSelectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "select <book-id>",
		Short: "Move the active preview selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var sel library.Selection
			body := library.Selection{BookID: args[0], Page: page}
			if err := client.Put(cmd.Context(), "/api/selection", body, &sel); err != nil {
				return err
			}
			return api.Output(sel)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number to select")
	return cmd
}
