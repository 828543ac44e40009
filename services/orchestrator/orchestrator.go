// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator assembles the agent service: the turn loop, the
// tool registry, the memory store, HTTP routing, and observability.
//
// # Degraded Modes
//
// The service is built to keep answering with whatever is reachable:
//   - No Redis: conversation memory falls back to the in-process store.
//   - No Weaviate: document routes answer 503 and the document_search
//     tool is unregistered; document questions escalate to web search.
//   - No search API key: web_search is unregistered and reported as
//     unavailable in answers.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12310, LLMBackend: "ollama"}
//	svc, err := orchestrator.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/agentx/pkg/extensions"
	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/llm"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/observability"
	"github.com/AleutianAI/agentx/services/orchestrator/routes"
	"github.com/AleutianAI/agentx/services/tools/calculator"
	"github.com/AleutianAI/agentx/services/tools/docsearch"
	"github.com/AleutianAI/agentx/services/tools/taskstore"
	"github.com/AleutianAI/agentx/services/tools/visualizer"
	"github.com/AleutianAI/agentx/services/tools/websearch"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the agent service lifecycle.
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds service configuration options. All fields have defaults,
// so the zero value is a runnable local configuration.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend selects the answer-composition provider.
	// Valid values: "openai", "ollama". Default: "ollama"
	LLMBackend string

	// RedisAddress is the conversation-memory backend, e.g.
	// "localhost:6379". If empty or unreachable, the in-process store
	// is used instead.
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// TaskDBPath is the BadgerDB directory for tasks.
	// Default: "./data/tasks"
	TaskDBPath string

	// WeaviateURL is the vector database URL. If empty, document
	// search is disabled. Example: "http://localhost:8080"
	WeaviateURL string

	// EmbedServiceURL is the embedding service endpoint. Required
	// when WeaviateURL is set.
	EmbedServiceURL string

	// SearchBaseURL and SearchAPIKey configure the web search backend
	// (an OpenAI-compatible answer API). Web search is disabled when
	// the key is empty.
	SearchBaseURL string
	SearchAPIKey  string
	SearchModel   string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "localhost:4317"
	OTelEndpoint string

	// EnableMetrics exposes the Prometheus /metrics endpoint.
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// Agent tunes the turn loop. Zero values use the loop defaults.
	Agent agent.Config
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
type service struct {
	config         Config
	opts           extensions.ServiceOptions
	router         *gin.Engine
	llmClient      llm.LLMClient
	memoryStore    memory.Store
	taskStore      *taskstore.Store
	weaviateClient *weaviate.Client
	docService     *docsearch.Service
	agent          *agent.Agent
	tracerCleanup  func(context.Context)
}

// New creates the agent service with the given configuration.
//
// # Description
//
// New initializes every component in dependency order: tracing and
// metrics first, then the stores, then the tool registry, then the turn
// loop, and finally the HTTP router. Optional backends that fail to
// initialize degrade the service instead of failing it; only the task
// store and the LLM client are required.
//
// If opts is nil, DefaultOptions() is used (no-op auth, single local
// user).
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = *opts
	} else {
		s.opts = extensions.DefaultOptions()
	}
	if s.opts.AuthProvider == nil {
		s.opts.AuthProvider = &extensions.NopAuthProvider{}
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for the turn loop")
	}

	s.initMemoryStore()

	if err := s.initTaskStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize task store: %w", err)
	}

	if err := s.initWeaviate(); err != nil {
		slog.Warn("Document search initialization failed, continuing without it",
			"error", err)
		// Not fatal; document questions escalate to web search.
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.initAgent()
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting agent server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.TaskDBPath == "" {
		cfg.TaskDBPath = "./data/tasks"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "localhost:4317"
	}
	return cfg
}

// initTracer sets up the OTLP trace exporter. Uses an insecure gRPC
// connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("agentx-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initMemoryStore connects to Redis, falling back to the in-process
// store when Redis is absent or unreachable.
func (s *service) initMemoryStore() {
	if s.config.RedisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := memory.NewRedisStore(ctx, memory.RedisStoreConfig{
			Address:  s.config.RedisAddress,
			Password: s.config.RedisPassword,
			DB:       s.config.RedisDB,
		})
		if err == nil {
			s.memoryStore = store
			return
		}
		slog.Warn("Redis unavailable, using in-process memory store", "error", err)
	}
	s.memoryStore = memory.NewInProcStore()
}

func (s *service) initTaskStore() error {
	store, err := taskstore.Open(taskstore.DefaultConfig(s.config.TaskDBPath))
	if err != nil {
		return err
	}
	s.taskStore = store
	return nil
}

// initWeaviate initializes the vector database client and the document
// service. Both the Weaviate URL and the embedding service URL must be
// set; otherwise the service runs without document search.
func (s *service) initWeaviate() error {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("Weaviate URL not configured, document search disabled")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	clientConf := weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	}
	s.weaviateClient, err = weaviate.NewClient(clientConf)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	embedClient, err := docsearch.NewEmbeddingClient(s.config.EmbedServiceURL)
	if err != nil {
		s.weaviateClient = nil
		return fmt.Errorf("embedding service not configured: %w", err)
	}

	s.docService = docsearch.NewService(s.weaviateClient, embedClient, 0)
	if err := s.docService.EnsureSchema(context.Background()); err != nil {
		slog.Warn("Could not verify Weaviate schema at startup", "error", err)
		// Keep the service; the schema check re-runs on first ingest.
	}
	slog.Info("Weaviate client initialized", "url", weaviateURL)

	return nil
}

// initLLMClient creates the answer-composition backend.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOllamaClient()
	}

	return err
}

// initAgent builds the tool registry and the turn loop, and wires the
// metrics hooks.
func (s *service) initAgent() {
	registry := agent.NewRegistry()
	registry.Register(taskstore.NewTool(s.taskStore))
	registry.Register(calculator.NewTool())
	registry.Register(visualizer.NewTool())

	if s.docService != nil {
		registry.Register(docsearch.NewTool(s.docService))
	}

	if s.config.SearchAPIKey != "" {
		search, err := websearch.NewTool(websearch.Config{
			BaseURL: s.config.SearchBaseURL,
			APIKey:  s.config.SearchAPIKey,
			Model:   s.config.SearchModel,
		}, s.memoryStore)
		if err != nil {
			slog.Warn("Web search disabled", "error", err)
		} else {
			registry.Register(search)
		}
	} else {
		slog.Info("No search API key configured, web search disabled")
	}

	slog.Info("Registered tools", "tools", registry.IDs())

	s.agent = agent.New(registry, s.llmClient, s.config.Agent)
	s.agent.Dispatcher().SetResultHook(func(inv agent.ToolInvocation) {
		observability.RecordToolInvocation(string(inv.Tool), string(inv.Status), inv.Elapsed)
	})
	s.agent.Composer().SetFallbackHook(observability.RecordAnswerFallback)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("agentx-service"))

	routes.SetupRoutes(s.router, routes.Dependencies{
		Agent:         s.agent,
		Memory:        s.memoryStore,
		Tasks:         s.taskStore,
		Documents:     s.docService,
		Visualizer:    visualizer.NewTool(),
		Options:       s.opts,
		EnableMetrics: s.config.EnableMetrics,
	})
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.taskStore != nil {
		if err := s.taskStore.Close(); err != nil {
			slog.Warn("Task store close error", "error", err)
		}
	}
	if s.memoryStore != nil {
		if err := s.memoryStore.Close(); err != nil {
			slog.Warn("Memory store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
