package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/ask"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// AskRequest is the body for POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskEndpoint handles POST /api/ask. One question is answered at a time;
// a second ask while one is in flight gets 409.
type AskEndpoint struct{}

var _ api.Endpoint = (*AskEndpoint)(nil)

func (e *AskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/ask", e.handler
}

func (e *AskEndpoint) RequiresInit() bool { return true }

func (e *AskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	requester := svcctx.RequesterFrom(r.Context())
	if requester == nil {
		writeError(w, http.StatusServiceUnavailable, "requester not initialized")
		return
	}

	answer, err := requester.Ask(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, ask.ErrInFlight):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ask.ErrEmptyLibrary):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// The navigation command moves the active preview to the first
	// reference of the answer.
	if answer.Navigation != nil {
		if lib := svcctx.LibraryFrom(r.Context()); lib != nil {
			if err := lib.SetSelection(answerSelection(answer)); err != nil {
				if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
					logger.Warn("navigation target missing", "error", err)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, answer)
}

// answerSelection converts an answer's navigation command to a selection.
func answerSelection(a *ask.Answer) library.Selection {
	return library.Selection{BookID: a.Navigation.BookID, Page: a.Navigation.Page}
}

func (e *AskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the uploaded books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var answer ask.Answer
			body := AskRequest{Question: strings.Join(args, " ")}
			if err := client.Post(cmd.Context(), "/api/ask", body, &answer); err != nil {
				return err
			}
			return api.Output(answer)
		},
	}
}
