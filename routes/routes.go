// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/medassist-ai/medassist/handlers"
	"github.com/medassist-ai/medassist/history"
	"github.com/medassist-ai/medassist/services"
)

// SetupRoutes registers the full HTTP surface. chatService may be nil
// (no LLM configured: chat endpoints answer 503) and weaviateClient may
// be nil (lightweight mode: document endpoints answer 503); the clear
// and health endpoints always work.
func SetupRoutes(router *gin.Engine, chatService *services.ChatService,
	store history.Store, weaviateClient *weaviate.Client, uiDir string) {

	router.StaticFile("/", filepath.Join(uiDir, "index.html"))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HandleHealth(chatService != nil, weaviateClient != nil))
		api.POST("/stream", handlers.HandleChatStream(chatService))
		api.POST("/chat", handlers.HandleChat(chatService))
		api.POST("/clear", handlers.HandleClear(store))
		api.POST("/documents", handlers.CreateDocument(weaviateClient))
		api.GET("/documents", handlers.ListDocuments(weaviateClient))
	}
}
