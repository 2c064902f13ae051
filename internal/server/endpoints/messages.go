package endpoints

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/citation"
	"github.com/jackzampolin/lectern/internal/conversation"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// MessagesResponse is the full conversation in append order. References
// are filtered against the current library so removed books never show
// up as dangling links.
type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Total    int           `json:"total"`
}

// MessageView is a message with only currently valid references.
type MessageView struct {
	ID         string               `json:"id"`
	Role       conversation.Role    `json:"role"`
	Content    string               `json:"content"`
	References []citation.Reference `json:"references,omitempty"`
	CreatedAt  string               `json:"created_at"`
}

// ListMessagesEndpoint handles GET /api/messages.
type ListMessagesEndpoint struct{}

var _ api.Endpoint = (*ListMessagesEndpoint)(nil)

func (e *ListMessagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/messages", e.handler
}

func (e *ListMessagesEndpoint) RequiresInit() bool { return true }

func (e *ListMessagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	convo := svcctx.ConversationFrom(r.Context())
	if convo == nil {
		writeError(w, http.StatusServiceUnavailable, "conversation not initialized")
		return
	}
	lib := svcctx.LibraryFrom(r.Context())

	resp := MessagesResponse{Messages: []MessageView{}}
	for _, m := range convo.Messages() {
		view := MessageView{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		}
		if lib != nil {
			view.References = conversation.ValidReferences(m, lib)
		} else {
			view.References = m.References
		}
		resp.Messages = append(resp.Messages, view)
	}
	resp.Total = len(resp.Messages)
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListMessagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "Show the conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MessagesResponse
			if err := client.Get(cmd.Context(), "/api/messages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
