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

	"github.com/gin-gonic/gin"

	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/history"
)

// HandleClear serves POST /api/clear. It drops the caller's conversation
// history; clearing an empty or unknown session succeeds too.
func HandleClear(store history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := SessionID(c)
		store.Clear(sessionID)
		slog.Info("Cleared conversation", "sessionId", sessionID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Conversation cleared",
		})
	}
}

// HandleHealth serves GET /api/health with the readiness of the two
// external collaborators.
func HandleHealth(llmReady, vectorStoreReady bool) gin.HandlerFunc {
	status := func(ok bool) string {
		if ok {
			return "available"
		}
		return "unavailable"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:      "ok",
			LLM:         status(llmReady),
			VectorStore: status(vectorStoreReady),
		})
	}
}
