// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/history"
	"github.com/medassist-ai/medassist/llm"
	"github.com/medassist-ai/medassist/prompt"
	"github.com/medassist-ai/medassist/retrieval"
)

var tracer = otel.Tracer("medassist.services.chat")

// disclaimerKeywords trigger the medical disclaimer when they appear in
// the user's message. Matching is case-insensitive substring.
var disclaimerKeywords = []string{
	"diagnose", "treatment", "medicine", "drug", "symptom",
	"pain", "sick", "disease", "infection", "fever", "cancer",
}

// NeedsDisclaimer reports whether a user message touches a clinically
// sensitive topic.
func NeedsDisclaimer(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range disclaimerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Options tune the orchestrator. Zero values fall back to defaults.
type Options struct {
	// TopK is the number of context snippets fetched per request.
	TopK int
	// HistoryWindow is the number of recent turns rendered into the prompt.
	HistoryWindow int
	// RetrievalTimeout bounds the similarity search.
	RetrievalTimeout time.Duration
}

const (
	defaultTopK             = 4
	defaultHistoryWindow    = 6
	defaultRetrievalTimeout = 10 * time.Second
)

// ChatService orchestrates a chat exchange: context retrieval, prompt
// assembly, completion, disclaimer and history persistence.
//
// The retriever may be nil (lightweight mode, no vector store); every
// other collaborator is required.
type ChatService struct {
	llmClient llm.LLMClient
	retriever retrieval.Retriever
	history   history.Store

	topK             int
	historyWindow    int
	retrievalTimeout time.Duration
}

func NewChatService(llmClient llm.LLMClient, retriever retrieval.Retriever,
	store history.Store, opts Options) *ChatService {

	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = defaultRetrievalTimeout
	}
	return &ChatService{
		llmClient:        llmClient,
		retriever:        retriever,
		history:          store,
		topK:             opts.TopK,
		historyWindow:    opts.HistoryWindow,
		retrievalTimeout: opts.RetrievalTimeout,
	}
}

// ClearHistory drops the session's conversation history.
func (s *ChatService) ClearHistory(sessionID string) {
	s.history.Clear(sessionID)
	slog.Info("Cleared conversation history", "sessionId", sessionID)
}

// assembleContext gathers retrieval snippets and renders the recent
// conversation history. Retrieval failures degrade to an empty context;
// they never fail the request.
func (s *ChatService) assembleContext(ctx context.Context, sessionID, message string) (string, string) {
	ctx, span := tracer.Start(ctx, "ChatService.assembleContext")
	defer span.End()

	contextText := ""
	if s.retriever != nil {
		rctx, cancel := context.WithTimeout(ctx, s.retrievalTimeout)
		snippets, err := s.retriever.Search(rctx, message, s.topK)
		cancel()
		if err != nil {
			span.RecordError(err)
			slog.Warn("Context retrieval failed, continuing without documents",
				"sessionId", sessionID, "error", err)
		} else {
			contextText = strings.Join(snippets, "\n\n")
		}
	}

	var sb strings.Builder
	for _, turn := range s.history.Recent(sessionID, s.historyWindow) {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}

	span.SetAttributes(
		attribute.Int("chat.context_chars", len(contextText)),
		attribute.Int("chat.history_chars", sb.Len()),
	)
	return contextText, sb.String()
}

// buildMessages produces the fixed two-message prompt: the MedAI system
// prompt and the rendered human template.
func buildMessages(message, contextText, historyText string) []datatypes.Message {
	return []datatypes.Message{
		{Role: "system", Content: prompt.MedicalSystemPrompt},
		{Role: "user", Content: prompt.RenderAssistantPrompt(contextText, historyText, message)},
	}
}

// Stream runs one streaming exchange. Each generated token is forwarded
// through emit as a token event; after natural exhaustion the disclaimer
// (when warranted) goes out as one extra token event, the full exchange
// is persisted, and a single done event closes the stream.
//
// Any failure returns a *GenerationError: already-emitted tokens stand,
// nothing is persisted and nothing is retried.
func (s *ChatService) Stream(ctx context.Context, sessionID, message string,
	emit func(datatypes.StreamEvent) error) error {

	ctx, span := tracer.Start(ctx, "ChatService.Stream")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	contextText, historyText := s.assembleContext(ctx, sessionID, message)
	messages := buildMessages(message, contextText, historyText)

	var full strings.Builder
	err := s.llmClient.ChatStream(ctx, messages, llm.GenerationParams{},
		func(event llm.StreamEvent) error {
			if event.Type != llm.StreamEventToken || event.Content == "" {
				return nil
			}
			full.WriteString(event.Content)
			return emit(datatypes.StreamEvent{Token: event.Content})
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "streaming generation failed")
		slog.Error("Streaming generation failed", "sessionId", sessionID, "error", err)
		return &GenerationError{Err: err}
	}

	if NeedsDisclaimer(message) {
		full.WriteString(prompt.DisclaimerText)
		if err := emit(datatypes.StreamEvent{Token: prompt.DisclaimerText}); err != nil {
			span.RecordError(err)
			return &GenerationError{Err: err}
		}
	}

	s.history.Append(sessionID,
		datatypes.Turn{Role: datatypes.RoleUser, Content: message},
		datatypes.Turn{Role: datatypes.RoleAssistant, Content: full.String()},
	)
	span.SetAttributes(attribute.Int("chat.response_chars", full.Len()))

	if err := emit(datatypes.StreamEvent{Done: true}); err != nil {
		span.RecordError(err)
		return &GenerationError{Err: err}
	}
	return nil
}

// Complete runs one blocking exchange with the same validation,
// disclaimer and persistence contract as Stream.
func (s *ChatService) Complete(ctx context.Context, sessionID, message string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	contextText, historyText := s.assembleContext(ctx, sessionID, message)
	messages := buildMessages(message, contextText, historyText)

	answer, err := s.llmClient.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		slog.Error("Generation failed", "sessionId", sessionID, "error", err)
		return "", &GenerationError{Err: err}
	}

	if NeedsDisclaimer(message) {
		answer += prompt.DisclaimerText
	}

	s.history.Append(sessionID,
		datatypes.Turn{Role: datatypes.RoleUser, Content: message},
		datatypes.Turn{Role: datatypes.RoleAssistant, Content: answer},
	)
	span.SetAttributes(attribute.Int("chat.response_chars", len(answer)))
	return answer, nil
}
