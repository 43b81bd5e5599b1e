// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/services"
)

var chatTracer = otel.Tracer("medassist.handlers.chat")

// HandleChat serves POST /api/chat: the non-streaming exchange used as a
// fallback for clients without SSE support.
func HandleChat(svc *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
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

		sessionID := SessionID(c)
		span.SetAttributes(attribute.String("chat.session_id", sessionID))

		answer, err := svc.Complete(ctx, sessionID, req.Message)
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Message cannot be empty",
			})
		case err != nil:
			slog.Error("Chat request failed", "sessionId", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Error: %v", err),
			})
		default:
			c.JSON(http.StatusOK, datatypes.ChatResponse{Success: true, Response: answer})
		}
	}
}
