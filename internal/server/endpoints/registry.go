package endpoints

import (
	"github.com/jackzampolin/lectern/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Book endpoints
		&UploadBooksEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&RemoveBookEndpoint{},

		// Page endpoints
		&PageImageEndpoint{},
		&GetPageEndpoint{},

		// Conversation endpoints
		&AskEndpoint{},
		&ListMessagesEndpoint{},

		// Selection endpoints
		&GetSelectionEndpoint{},
		&SetSelectionEndpoint{},
	}
}
