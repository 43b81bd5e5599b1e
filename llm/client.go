package llm

import (
	"context"

	"github.com/medassist-ai/medassist/datatypes"
)

// GenerationParams carries optional sampling overrides. Nil fields fall
// back to each backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType identifies what a streaming callback received.
type StreamEventType string

const (
	// StreamEventToken carries one generated token fragment.
	StreamEventToken StreamEventType = "token"
	// StreamEventDone signals natural exhaustion of the stream.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is one unit delivered to a StreamCallback.
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// StreamCallback receives tokens as they are generated. Returning a
// non-nil error aborts the stream.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any completion backend.
type LLMClient interface {
	// Chat runs a blocking completion over the message set.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream runs a streaming completion, invoking callback once per
	// token in production order. It returns nil only after the backend
	// signals natural exhaustion.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams,
		callback StreamCallback) error
}
