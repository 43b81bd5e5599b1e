// Package retrieval provides similarity search over the medical knowledge
// base stored in Weaviate.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/medassist-ai/medassist/datatypes"
)

var tracer = otel.Tracer("medassist.retrieval")

// Retriever returns similarity-ranked context snippets for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// WeaviateRetriever runs nearText queries against the MedicalDocument
// class. Vectorization happens server-side.
type WeaviateRetriever struct {
	client *weaviate.Client
}

func NewWeaviateRetriever(client *weaviate.Client) *WeaviateRetriever {
	return &WeaviateRetriever{client: client}
}

// Search returns up to k snippet texts in rank order.
func (r *WeaviateRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "WeaviateRetriever.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.k", k))

	nearText := r.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	result, err := r.client.GraphQL().Get().
		WithClassName(datatypes.MedicalDocumentClass).
		WithFields(graphql.Field{Name: "content"}).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		err := fmt.Errorf("similarity search failed: %s", result.Errors[0].Message)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.MedicalDocumentQueryResponse](result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse similarity search response: %w", err)
	}

	snippets := make([]string, 0, len(parsed.Get.MedicalDocument))
	for _, doc := range parsed.Get.MedicalDocument {
		if doc.Content != "" {
			snippets = append(snippets, doc.Content)
		}
	}
	span.SetAttributes(attribute.Int("retrieval.snippets", len(snippets)))
	slog.Debug("Retrieved context snippets", "count", len(snippets))
	return snippets, nil
}
