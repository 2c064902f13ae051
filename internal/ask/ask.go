// Package ask turns a user question into an answered conversation turn.
package ask

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/jackzampolin/lectern/internal/citation"
	"github.com/jackzampolin/lectern/internal/conversation"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/providers"
)

// Fallback answers shown when the provider fails. The product always
// shows a message, so provider failures are swallowed here.
const (
	FallbackNoAnswer = "I could not find an answer."
	FallbackLLMError = "There was an error communicating with the language model service."
)

// ErrInFlight is returned when a question is asked while another is
// still being answered.
var ErrInFlight = errors.New("a question is already being answered")

// ErrEmptyLibrary is returned when a question is asked before any book
// has been uploaded.
var ErrEmptyLibrary = errors.New("no books in the library")

// Requester sends questions to the configured LLM client and resolves
// the answer's citations. One question is in flight at a time.
type Requester struct {
	library  *library.Store
	log      *conversation.Log
	registry *providers.Registry
	provider string
	model    string
	logger   *slog.Logger

	inFlight atomic.Bool
}

// Options configures a Requester.
type Options struct {
	Library  *library.Store
	Log      *conversation.Log
	Registry *providers.Registry
	Provider string // registry name of the LLM client to use
	Model    string // model override, empty for the client default
	Logger   *slog.Logger
}

// NewRequester creates a requester.
func NewRequester(opts Options) *Requester {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		library:  opts.Library,
		log:      opts.Log,
		registry: opts.Registry,
		provider: opts.Provider,
		model:    opts.Model,
		logger:   logger,
	}
}

// Answer is the outcome of one question: both appended messages plus the
// navigation command derived from the assistant's references, nil when
// there is nothing to navigate to.
type Answer struct {
	Question   conversation.Message     `json:"question"`
	Response   conversation.Message     `json:"response"`
	Navigation *conversation.Navigation `json:"navigation,omitempty"`
}

// InFlight reports whether a question is currently being answered.
func (r *Requester) InFlight() bool {
	return r.inFlight.Load()
}

// Ask answers a question against the current library. The library and
// conversation are snapshotted up front so books removed mid-flight do
// not disturb the request. Provider failures become fallback answer text
// with no references; they are never propagated.
func (r *Requester) Ask(ctx context.Context, question string) (*Answer, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer r.inFlight.Store(false)

	books := r.library.Books()
	if len(books) == 0 {
		return nil, ErrEmptyLibrary
	}
	refs := r.library.Refs()
	turns := r.log.Turns()

	client, err := r.registry.GetLLM(r.provider)
	if err != nil {
		return nil, err
	}

	req := BuildRequest(question, books, turns)
	req.Model = r.model

	r.logger.Info("asking question",
		"provider", r.provider,
		"books", len(books),
		"prior_turns", len(turns),
	)

	raw := r.chat(ctx, client, req)
	res := citation.Resolve(raw, refs)

	userMsg, _ := r.log.Append(conversation.RoleUser, question, nil)
	asstMsg, nav := r.log.Append(conversation.RoleAssistant, res.Display, res.References)

	r.logger.Info("answered question",
		"references", len(res.References),
		"navigation", nav != nil,
	)

	return &Answer{Question: userMsg, Response: asstMsg, Navigation: nav}, nil
}

// chat runs the provider call and maps failures to fallback text.
func (r *Requester) chat(ctx context.Context, client providers.LLMClient, req *providers.ChatRequest) string {
	result, err := client.Chat(ctx, req)
	if err != nil {
		r.logger.Warn("llm request failed", "provider", client.Name(), "error", err)
		return FallbackLLMError
	}
	if !result.Success || result.Content == "" {
		r.logger.Warn("llm returned no answer",
			"provider", client.Name(),
			"error_type", result.ErrorType,
		)
		return FallbackNoAnswer
	}
	return result.Content
}
