// Package llm defines the text-generation provider interface and the HTTP providers behind it.
// The chat pipeline only needs one blocking completion per message.
package llm

import (
	"context"
	"fmt"

	cerrors "github.com/storehouse-ng/storefront-chat/internal/errors"
)

// Role constants for Message.Role.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// StopReason values normalised across providers.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
)

// Message is a single turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage is shorthand for a single user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionRequest is the input to a provider's Complete call.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	Model        string // overrides the provider default when set
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	Text         string
	StopReason   string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is a language model backend.
type Provider interface {
	// Complete sends one completion request and waits for the full response.
	// It must honour ctx cancellation and never retry on its own.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// statusError converts a non-2xx response into an APIError tagged for retry classification.
func statusError(service string, status int, message string) error {
	e := cerrors.NewAPIError(service, status, message)
	switch {
	case status == 401 || status == 403:
		e.Err = cerrors.ErrAuthFailure
	case status == 429:
		e.Err = cerrors.ErrRateLimit
	case status >= 500:
		e.Err = cerrors.ErrUnavailable
	}
	return e
}

// emptyCompletion is returned when the provider answers 2xx without any text.
func emptyCompletion(service string) error {
	return fmt.Errorf("%s: empty completion", service)
}
