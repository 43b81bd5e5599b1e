// Copyright (C) 2026 MedAssist AI (dev@medassist.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/medassist-ai/medassist/config"
	"github.com/medassist-ai/medassist/datatypes"
	"github.com/medassist-ai/medassist/history"
	"github.com/medassist-ai/medassist/llm"
	"github.com/medassist-ai/medassist/retrieval"
	"github.com/medassist-ai/medassist/routes"
	"github.com/medassist-ai/medassist/services"
)

const serviceName = "medassist"

// initTracer wires the OTLP gRPC exporter. Returns a nil cleanup when no
// collector endpoint is configured.
func initTracer(endpoint string) (func(context.Context), error) {
	if endpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing exporter disabled")
		return nil, nil
	}
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient connects to the vector store, or returns nil for
// lightweight mode when the URL is absent or invalid.
func newWeaviateClient(rawURL string) *weaviate.Client {
	// Trim quotes and whitespace in case the container runtime passes
	// them literally.
	rawURL = strings.Trim(rawURL, "\"' ")
	if rawURL == "" {
		slog.Info("WEAVIATE_URL not set. Running in lightweight mode (chat only).")
		return nil
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_URL is invalid. Running in lightweight mode.",
			"url", rawURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}
	datatypes.EnsureWeaviateSchema(client)
	return client
}

// newLLMClient builds the configured completion backend. A nil return
// means degraded mode: chat endpoints answer 503.
func newLLMClient(cfg *config.Config) llm.LLMClient {
	var (
		client llm.LLMClient
		err    error
	)
	switch cfg.LLMBackend {
	case "openai":
		client, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client, err = llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LLMTimeout)
		slog.Info("Using Ollama LLM backend")
	case "groq":
		client, err = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.LLMTimeout)
		slog.Info("Using Groq LLM backend")
	default:
		slog.Warn("LLM_BACKEND not recognized, defaulting to groq", "backend", cfg.LLMBackend)
		client, err = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.LLMTimeout)
	}
	if err != nil {
		slog.Error("Failed to initialize LLM client; chat endpoints will answer 503", "error", err)
		return nil
	}
	return client
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cleanup, err := initTracer(cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	if cleanup != nil {
		defer cleanup(context.Background())
	}

	weaviateClient := newWeaviateClient(cfg.WeaviateURL)
	llmClient := newLLMClient(cfg)

	store := history.NewMemoryStore()
	var chatService *services.ChatService
	if llmClient != nil {
		var retriever retrieval.Retriever
		if weaviateClient != nil {
			retriever = retrieval.NewWeaviateRetriever(weaviateClient)
		}
		chatService = services.NewChatService(llmClient, retriever, store, services.Options{
			TopK:             cfg.RetrievalTopK,
			HistoryWindow:    cfg.HistoryWindow,
			RetrievalTimeout: cfg.RetrievalTimeout,
		})
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, chatService, store, weaviateClient, cfg.UIDir)

	slog.Info("Starting the MedAssist server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
