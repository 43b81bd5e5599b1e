// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Role values for conversation turns. The capitalized forms are rendered
// directly into the history block of the prompt.
const (
	RoleUser      = "User"
	RoleAssistant = "Assistant"
)

// Turn is one role-tagged entry in a session's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a single chat message in the shape LLM backends expect
// (lowercase roles: "system", "user", "assistant").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat and POST /api/stream.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// StreamEvent is the payload of one SSE frame. Exactly one of the three
// fields is ever set; omitempty keeps the other keys off the wire so each
// event carries a single recognized key (token, done or error).
type StreamEvent struct {
	Token string `json:"token,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// HealthResponse reports readiness of the two external collaborators.
type HealthResponse struct {
	Status      string `json:"status"`
	LLM         string `json:"llm"`
	VectorStore string `json:"vector_store"`
}
