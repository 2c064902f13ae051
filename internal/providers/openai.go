package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const OpenAIName = "openai"

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting
	RPM int // Requests per minute (default: 60)
}

// OpenAIClient implements LLMClient using the OpenAI Responses API.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
	limiter      *RateLimiter
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.RPM == 0 {
		cfg.RPM = 60
	}
	return &OpenAIClient{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithRequestTimeout(cfg.Timeout),
		),
		defaultModel: cfg.DefaultModel,
		limiter:      NewRateLimiter(cfg.RPM),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Chat sends a chat completion request via the Responses API.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
		ModelUsed: model,
		Attempts:  1,
	}

	params := responses.ResponseNewParams{
		Model:       model,
		Temperature: openai.Float(req.Temperature),
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	items, instructions := openaiInput(req.Messages)
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	params.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: items}

	if err := c.limiter.Wait(ctx); err != nil {
		result.ErrorType = "cancelled"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("openai request failed: %w", err)
	}

	text := resp.OutputText()
	if text == "" {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no output text in response"
		result.TotalTime = time.Since(start)
		return result, fmt.Errorf("no output text in response")
	}

	result.Success = true
	result.Content = text
	result.ModelUsed = string(resp.Model)
	result.PromptTokens = int(resp.Usage.InputTokens)
	result.CompletionTokens = int(resp.Usage.OutputTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	return result, nil
}

// openaiInput converts messages to Responses API input items. The system
// message is pulled out and returned separately as instructions.
func openaiInput(messages []Message) (responses.ResponseInputParam, string) {
	var items responses.ResponseInputParam
	var instructions string
	for _, m := range messages {
		if m.Role == "system" {
			instructions = m.Content
			continue
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(openaiContent(m), responses.EasyInputMessageRole(m.Role)))
	}
	return items, instructions
}

// openaiContent converts a message to a Responses API content list,
// preserving the order of interleaved text and image parts.
func openaiContent(m Message) responses.ResponseInputMessageContentListParam {
	if len(m.Parts) == 0 {
		return responses.ResponseInputMessageContentListParam{
			responses.ResponseInputContentParamOfInputText(m.Content),
		}
	}
	content := make(responses.ResponseInputMessageContentListParam, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Image != nil {
			mime := p.MIME
			if mime == "" {
				mime = "image/jpeg"
			}
			content = append(content, responses.ResponseInputContentUnionParam{
				OfInputImage: &responses.ResponseInputImageParam{
					ImageURL: openai.String("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Image)),
					Detail:   "auto",
				},
			})
		} else {
			content = append(content, responses.ResponseInputContentParamOfInputText(p.Text))
		}
	}
	return content
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
