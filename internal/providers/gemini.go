package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const GeminiName = "gemini"

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	// Rate limiting
	RPM        int           // Requests per minute (default: 60)
	MaxRetries int           // Max retry attempts (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// GeminiClient implements LLMClient using the Google Generative AI API.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	limiter      *RateLimiter
	maxRetries   int
	retryDelay   time.Duration
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}
	if cfg.RPM == 0 {
		cfg.RPM = 60
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		limiter:      NewRateLimiter(cfg.RPM),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a chat completion request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		Attempts:  1,
	}

	modelName := req.Model
	if modelName == "" {
		modelName = c.defaultModel
	}
	result.ModelUsed = modelName

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		result.ErrorType = "client_error"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(req.Temperature))
	if req.TopP > 0 {
		model.SetTopP(float32(req.TopP))
	}
	if req.TopK > 0 {
		model.SetTopK(int32(req.TopK))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	// System messages become the system instruction; everything else is
	// chat history with the final user turn sent as the message.
	var history []*genai.Content
	var last []genai.Part
	for _, m := range req.Messages {
		parts := geminiParts(m)
		switch m.Role {
		case "system":
			model.SystemInstruction = &genai.Content{Parts: parts}
		case "assistant":
			history = append(history, &genai.Content{Role: "model", Parts: parts})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: parts})
		}
	}
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		last = history[n-1].Parts
		history = history[:n-1]
	}
	if last == nil {
		result.ErrorType = "empty_request"
		result.ErrorMessage = "no user message to send"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("no user message to send")
	}

	session := model.StartChat()
	session.History = history

	var resp *genai.GenerateContentResponse
	attempts := 0
	err = retry.Do(
		func() error {
			attempts++
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			var callErr error
			resp, callErr = session.SendMessage(ctx, last...)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	result.Attempts = attempts
	if err != nil {
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := geminiText(resp)
	if err != nil {
		result.ErrorType = "empty_response"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	result.Success = true
	result.Content = text
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	return result, nil
}

// geminiParts converts a message to genai parts, preserving the order of
// interleaved text and image parts.
func geminiParts(m Message) []genai.Part {
	if len(m.Parts) == 0 {
		return []genai.Part{genai.Text(m.Content)}
	}
	parts := make([]genai.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Image != nil {
			parts = append(parts, genai.ImageData(imageFormat(p.MIME), p.Image))
		} else {
			parts = append(parts, genai.Text(p.Text))
		}
	}
	return parts
}

// imageFormat maps a MIME type to the bare format genai.ImageData expects.
func imageFormat(mime string) string {
	format := strings.TrimPrefix(mime, "image/")
	if format == "" {
		format = "jpeg"
	}
	return format
}

// geminiText extracts the text of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}

// Verify interface
var _ LLMClient = (*GeminiClient)(nil)
