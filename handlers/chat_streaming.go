// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/services"
)

var streamTracer = otel.Tracer("medassist.handlers.stream")

// HandleChatStream serves POST /api/stream.
//
// # Description
//
// Validates the request, then hands off to the chat service which emits
// token events through the SSE writer, followed by a single done event.
// Failures before the stream opens are plain JSON errors; failures after
// the first byte become a terminal error event on the stream itself.
//
// # Limitations
//
//   - Once SSE headers are written the HTTP status is already 200;
//     mid-stream failures can only be reported in-band.
func HandleChatStream(svc *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := streamTracer.Start(c.Request.Context(), "HandleChatStream")
		defer span.End()

		if svc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "AI service is not available",
			})
			return
		}

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid request body",
			})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Message cannot be empty",
			})
			return
		}

		// Mint the session cookie before the body starts streaming.
		sessionID := SessionID(c)
		span.SetAttributes(attribute.String("chat.session_id", sessionID))
		slog.Info("Starting chat stream", "sessionId", sessionID)

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "streaming not supported",
			})
			return
		}

		err = svc.Stream(ctx, sessionID, req.Message, writer.WriteEvent)
		if err != nil {
			slog.Error("Chat stream failed", "sessionId", sessionID, "error", err)
			// Best effort: the client may already be gone.
			if werr := writer.WriteError(err.Error()); werr != nil {
				slog.Debug("Could not deliver stream error event", "error", werr)
			}
			return
		}
		slog.Info("Chat stream completed", "sessionId", sessionID)
	}
}
