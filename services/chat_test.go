// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/history"
	"github.com/medassist-ai/medassist/llm"
	"github.com/medassist-ai/medassist/prompt"
)

// mockLLMClient implements llm.LLMClient with scripted behavior.
type mockLLMClient struct {
	tokens       []string
	chatResponse string
	err          error
	failAfter    int // fail after emitting this many tokens; -1 = never

	chatCalls    int
	streamCalls  int
	lastMessages []datatypes.Message
}

func newMockLLM(tokens ...string) *mockLLMClient {
	return &mockLLMClient{tokens: tokens, failAfter: -1}
}

func (m *mockLLMClient) Chat(ctx context.Context, messages []datatypes.Message,
	params llm.GenerationParams) (string, error) {
	m.chatCalls++
	m.lastMessages = messages
	if m.err != nil {
		return "", m.err
	}
	return m.chatResponse, nil
}

func (m *mockLLMClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params llm.GenerationParams, callback llm.StreamCallback) error {
	m.streamCalls++
	m.lastMessages = messages
	for i, tok := range m.tokens {
		if m.failAfter >= 0 && i == m.failAfter {
			return errors.New("upstream connection reset")
		}
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: tok}); err != nil {
			return err
		}
	}
	if m.failAfter >= 0 && m.failAfter >= len(m.tokens) {
		return errors.New("upstream connection reset")
	}
	return m.err
}

// mockRetriever implements retrieval.Retriever.
type mockRetriever struct {
	snippets []string
	err      error
	calls    int
}

func (m *mockRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.snippets, nil
}

func collectEvents(t *testing.T) (func(datatypes.StreamEvent) error, *[]datatypes.StreamEvent) {
	t.Helper()
	events := &[]datatypes.StreamEvent{}
	return func(e datatypes.StreamEvent) error {
		*events = append(*events, e)
		return nil
	}, events
}

func TestChatService_Stream_HappyPath(t *testing.T) {
	mock := newMockLLM("Hello", " world")
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{})

	emit, events := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "hello there", emit)
	require.NoError(t, err)

	require.Len(t, *events, 3)
	assert.Equal(t, datatypes.StreamEvent{Token: "Hello"}, (*events)[0])
	assert.Equal(t, datatypes.StreamEvent{Token: " world"}, (*events)[1])
	assert.Equal(t, datatypes.StreamEvent{Done: true}, (*events)[2])

	turns := store.Recent("sess-1", 0)
	require.Len(t, turns, 2)
	assert.Equal(t, datatypes.Turn{Role: datatypes.RoleUser, Content: "hello there"}, turns[0])
	assert.Equal(t, datatypes.Turn{Role: datatypes.RoleAssistant, Content: "Hello world"}, turns[1])
}

func TestChatService_Stream_PersistsBeforeDone(t *testing.T) {
	mock := newMockLLM("ok")
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{})

	var lenAtDone int
	err := svc.Stream(context.Background(), "sess-1", "hi", func(e datatypes.StreamEvent) error {
		if e.Done {
			lenAtDone = len(store.Recent("sess-1", 0))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, lenAtDone, "exchange must be persisted before the done event")
}

func TestChatService_Stream_Disclaimer(t *testing.T) {
	t.Run("keyword message gets one extra token event", func(t *testing.T) {
		mock := newMockLLM("Take", " rest.")
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		emit, events := collectEvents(t)
		err := svc.Stream(context.Background(), "sess-1", "what medicine helps a fever?", emit)
		require.NoError(t, err)

		require.Len(t, *events, 4)
		assert.Equal(t, prompt.DisclaimerText, (*events)[2].Token)
		assert.True(t, (*events)[3].Done)

		turns := store.Recent("sess-1", 0)
		require.Len(t, turns, 2)
		assert.True(t, strings.HasSuffix(turns[1].Content, prompt.DisclaimerText))
		assert.Equal(t, 1, strings.Count(turns[1].Content, prompt.DisclaimerText))
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		mock := newMockLLM("answer")
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		emit, events := collectEvents(t)
		err := svc.Stream(context.Background(), "sess-1", "Tell me about CANCER screening", emit)
		require.NoError(t, err)
		require.Len(t, *events, 3)
		assert.Equal(t, prompt.DisclaimerText, (*events)[1].Token)
	})

	t.Run("neutral message gets no disclaimer", func(t *testing.T) {
		mock := newMockLLM("answer")
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		emit, events := collectEvents(t)
		err := svc.Stream(context.Background(), "sess-1", "how much water should I drink daily?", emit)
		require.NoError(t, err)
		require.Len(t, *events, 2)
		turns := store.Recent("sess-1", 0)
		assert.False(t, strings.Contains(turns[1].Content, prompt.DisclaimerText))
	})
}

func TestChatService_Stream_EmptyMessage(t *testing.T) {
	mock := newMockLLM("never")
	ret := &mockRetriever{}
	store := history.NewMemoryStore()
	svc := NewChatService(mock, ret, store, Options{})

	emit, events := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "   \t ", emit)

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, *events, "no events before validation")
	assert.Zero(t, mock.streamCalls, "LLM must not be contacted")
	assert.Zero(t, ret.calls, "retriever must not be contacted")
	assert.Empty(t, store.Recent("sess-1", 0))
}

func TestChatService_Stream_RetrieverFailureDegrades(t *testing.T) {
	mock := newMockLLM("fine")
	ret := &mockRetriever{err: errors.New("weaviate unreachable")}
	store := history.NewMemoryStore()
	svc := NewChatService(mock, ret, store, Options{})

	emit, events := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "what is aspirin?", emit)

	require.NoError(t, err, "retrieval failure must not fail the request")
	assert.Equal(t, 1, ret.calls)
	require.Len(t, *events, 2)

	// The prompt falls back to the no-context placeholder.
	require.Len(t, mock.lastMessages, 2)
	assert.Contains(t, mock.lastMessages[1].Content, prompt.NoContextPlaceholder)
}

func TestChatService_Stream_ContextSnippetsJoined(t *testing.T) {
	mock := newMockLLM("fine")
	ret := &mockRetriever{snippets: []string{"first snippet", "second snippet"}}
	svc := NewChatService(mock, ret, history.NewMemoryStore(), Options{})

	emit, _ := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "what is aspirin?", emit)
	require.NoError(t, err)

	require.Len(t, mock.lastMessages, 2)
	assert.Equal(t, "system", mock.lastMessages[0].Role)
	assert.Contains(t, mock.lastMessages[1].Content, "first snippet\n\nsecond snippet")
}

func TestChatService_Stream_MidStreamFailure(t *testing.T) {
	mock := newMockLLM("partial", "never-sent")
	mock.failAfter = 1
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{})

	emit, events := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "hi", emit)

	require.Error(t, err)
	assert.True(t, IsGenerationError(err))

	// The already-delivered token stands; no done event follows.
	require.Len(t, *events, 1)
	assert.Equal(t, "partial", (*events)[0].Token)
	assert.Empty(t, store.Recent("sess-1", 0), "failed exchange must not be persisted")
}

func TestChatService_Stream_EmitFailureAbortsWithoutPersisting(t *testing.T) {
	mock := newMockLLM("a", "b", "c")
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{})

	sent := 0
	err := svc.Stream(context.Background(), "sess-1", "hi", func(e datatypes.StreamEvent) error {
		sent++
		if sent == 2 {
			return errors.New("client disconnected")
		}
		return nil
	})

	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.Empty(t, store.Recent("sess-1", 0))
}

func TestChatService_Stream_HistoryWindow(t *testing.T) {
	mock := newMockLLM("ok")
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{HistoryWindow: 6})

	for i := 1; i <= 4; i++ {
		store.Append("sess-1",
			datatypes.Turn{Role: datatypes.RoleUser, Content: fmt.Sprintf("question %d", i)},
			datatypes.Turn{Role: datatypes.RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
		)
	}

	emit, _ := collectEvents(t)
	err := svc.Stream(context.Background(), "sess-1", "follow-up", emit)
	require.NoError(t, err)

	promptText := mock.lastMessages[1].Content
	// Last six turns only: exchanges 2-4.
	assert.Contains(t, promptText, "User: question 2")
	assert.Contains(t, promptText, "Assistant: answer 4")
	assert.NotContains(t, promptText, "question 1")
}

func TestChatService_Stream_HistoryCap(t *testing.T) {
	mock := newMockLLM("ok")
	store := history.NewMemoryStore()
	svc := NewChatService(mock, nil, store, Options{})

	emit, _ := collectEvents(t)
	for i := 1; i <= 11; i++ {
		mock.tokens = []string{fmt.Sprintf("answer %d", i)}
		require.NoError(t, svc.Stream(context.Background(), "sess-1", fmt.Sprintf("question %d", i), emit))
	}

	turns := store.Recent("sess-1", 0)
	require.Len(t, turns, history.MaxTurns)
	assert.Equal(t, "question 2", turns[0].Content, "oldest exchange evicted")
	assert.Equal(t, "answer 11", turns[len(turns)-1].Content)
}

func TestChatService_Complete(t *testing.T) {
	t.Run("happy path persists exchange", func(t *testing.T) {
		mock := newMockLLM()
		mock.chatResponse = "Drink plenty of fluids."
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		got, err := svc.Complete(context.Background(), "sess-1", "how to stay hydrated?")
		require.NoError(t, err)
		assert.Equal(t, "Drink plenty of fluids.", got)

		turns := store.Recent("sess-1", 0)
		require.Len(t, turns, 2)
		assert.Equal(t, "Drink plenty of fluids.", turns[1].Content)
	})

	t.Run("keyword message gets disclaimer appended", func(t *testing.T) {
		mock := newMockLLM()
		mock.chatResponse = "Ibuprofen reduces inflammation."
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		got, err := svc.Complete(context.Background(), "sess-1", "is this drug safe?")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got, prompt.DisclaimerText))

		turns := store.Recent("sess-1", 0)
		require.Len(t, turns, 2)
		assert.True(t, strings.HasSuffix(turns[1].Content, prompt.DisclaimerText))
	})

	t.Run("empty message rejected before any call", func(t *testing.T) {
		mock := newMockLLM()
		svc := NewChatService(mock, nil, history.NewMemoryStore(), Options{})

		_, err := svc.Complete(context.Background(), "sess-1", "")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Zero(t, mock.chatCalls)
	})

	t.Run("generation failure persists nothing", func(t *testing.T) {
		mock := newMockLLM()
		mock.err = errors.New("api quota exceeded")
		store := history.NewMemoryStore()
		svc := NewChatService(mock, nil, store, Options{})

		_, err := svc.Complete(context.Background(), "sess-1", "hello")
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.Empty(t, store.Recent("sess-1", 0))
	})
}

func TestChatService_ClearHistory(t *testing.T) {
	store := history.NewMemoryStore()
	store.Append("sess-1", datatypes.Turn{Role: datatypes.RoleUser, Content: "hi"})
	svc := NewChatService(newMockLLM(), nil, store, Options{})

	svc.ClearHistory("sess-1")
	assert.Empty(t, store.Recent("sess-1", 0))

	// Idempotent.
	svc.ClearHistory("sess-1")
	assert.Empty(t, store.Recent("sess-1", 0))
}

func TestNeedsDisclaimer(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"what medicine should I take", true},
		{"I have a FEVER", true},
		{"my symptoms include coughing", true},
		{"tell me about cancer research", true},
		{"is this drug addictive", true},
		{"how do vaccines work", false},
		{"what is a balanced diet", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			assert.Equal(t, tc.want, NeedsDisclaimer(tc.message))
		})
	}
}
