package providers

import (
	"context"
	"time"
)

// LLMClient is the interface every chat provider implements.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "gemini").
	Name() string
}

// ContentPart is one part of a multimodal message: either text or an
// inline image. Exactly one of Text/Image is set.
type ContentPart struct {
	Text  string `json:"text,omitempty"`
	Image []byte `json:"-"`              // raw image bytes, base64-encoded per provider
	MIME  string `json:"mime,omitempty"` // e.g. "image/jpeg", required when Image is set
}

// Message represents a chat message. Plain-text messages set Content;
// multimodal messages use Parts, interleaving text and images in order.
type Message struct {
	Role    string        `json:"role"` // "system", "user", "assistant"
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Sampling parameters. Zero temperature is meaningful (greedy) and is
	// always sent; TopP/TopK are sent when non-zero.
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`
	TotalTime     time.Duration `json:"total_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
