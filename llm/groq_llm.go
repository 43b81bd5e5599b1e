package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medassist-ai/medassist/datatypes"
)

var groqTracer = otel.Tracer("medassist.llm.groq")

const groqBaseURL = "https://api.groq.com/openai/v1"

// Sampling defaults for medical answers: low temperature, generous but
// bounded output.
const (
	defaultGroqTemperature = float32(0.3)
	defaultGroqMaxTokens   = 2048
)

// GroqClient talks to Groq's OpenAI-compatible completion API.
type GroqClient struct {
	client *openai.Client
	model  string
}

// NewGroqClient builds a Groq backend. The API key is required; an empty
// model falls back to llama-3.3-70b-versatile.
func NewGroqClient(apiKey, model string, timeout time.Duration) (*GroqClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq API key not configured")
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
		slog.Warn("GROQ_MODEL not set, defaulting to llama-3.3-70b-versatile")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	slog.Info("Initializing Groq client", "model", model)
	return &GroqClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (g *GroqClient) buildRequest(messages []datatypes.Message, params GenerationParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: defaultGroqTemperature,
		MaxTokens:   defaultGroqMaxTokens,
	}
	applyParams(&req, params)
	return req
}

// Chat implements the LLMClient interface.
func (g *GroqClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	ctx, span := groqTracer.Start(ctx, "GroqClient.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model))

	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(messages, params))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Groq API call failed", "error", err)
		return "", fmt.Errorf("groq chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Groq returned no choices")
		return "", fmt.Errorf("groq returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream implements the LLMClient interface. Tokens are forwarded to
// the callback in the order Groq produces them.
func (g *GroqClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {

	ctx, span := groqTracer.Start(ctx, "GroqClient.ChatStream")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("llm.num_messages", len(messages)),
	)

	req := g.buildRequest(messages, params)
	req.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Groq stream creation failed", "error", err)
		return fmt.Errorf("groq stream creation failed: %w", err)
	}
	defer stream.Close()

	tokenCount := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			span.SetAttributes(attribute.Int("llm.tokens_streamed", tokenCount))
			return nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("groq stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		tokenCount++
		if err := callback(StreamEvent{Type: StreamEventToken, Content: token}); err != nil {
			return fmt.Errorf("stream callback aborted: %w", err)
		}
	}
}
