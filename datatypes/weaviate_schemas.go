// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// MedicalDocumentClass is the Weaviate class holding ingested knowledge
// base chunks.
const MedicalDocumentClass = "MedicalDocument"

// GetMedicalDocumentSchema returns the schema for the MedicalDocument class.
//
// The class uses the text2vec-transformers vectorizer so nearText queries
// work server-side without a client-side embedder.
func GetMedicalDocumentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       MedicalDocumentClass,
		Description: "A chunk of medical reference text and its source.",
		Vectorizer:  "text2vec-transformers",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk text used for retrieval context.",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "Identifier of this specific chunk.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "parent_source",
				DataType:        []string{"text"},
				Description:     "The document this chunk was split from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "ingested_at",
				DataType:        []string{"number"},
				Description:     "Timestamp (Unix ms) of when the chunk was ingested.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureWeaviateSchema creates the MedicalDocument class if it does not
// exist yet. Called once at startup when a vector store is configured.
func EnsureWeaviateSchema(client *weaviate.Client) {
	class := GetMedicalDocumentSchema()
	slog.Info("Checking schema", "class", class.Class)

	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
	if err != nil {
		// The client returns an error when the class is absent.
		slog.Info("Schema not found, creating it...", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(context.Background()); err != nil {
			log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
		}
		slog.Info("Successfully created schema", "class", class.Class)
		return
	}
	slog.Info("Schema already exists", "class", class.Class)
}
