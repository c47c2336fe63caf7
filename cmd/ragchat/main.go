package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/clients"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/config"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/metrics"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/server"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/tasks"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/pkg/flow"
)

const shutdownTimeout = 10 * time.Second

type ragchat struct {
	cfg        *config.Config
	sessions   session.Store
	pipeline   *rag.Pipeline
	queue      *tasks.MemoryQueue
	worker     *tasks.Worker
	registry   *prometheus.Registry
	httpServer *http.Server
	stopWorker context.CancelFunc
	db         *sql.DB
	quit       chan os.Signal
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.Default()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	s := &ragchat{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}
}

func (s *ragchat) run() error {
	if err := s.initializeSessions(); err != nil {
		return err
	}
	s.initializePipeline()
	s.startWorker()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *ragchat) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("ragchat starting",
		slog.String("log_level", s.cfg.LogLevel),
		slog.String("api_addr", s.cfg.APIAddr),
		slog.String("session_store", s.cfg.SessionStore),
		slog.String("qdrant_url", s.cfg.QdrantURL),
		slog.String("llm_model", s.cfg.LLMModel),
		slog.String("embedding_model", s.cfg.EmbeddingModel))
}

func (s *ragchat) initializeSessions() error {
	switch s.cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.SessionRedisAddr,
			Password: s.cfg.SessionRedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return err
		}
		s.sessions = session.NewRedisStore(client, "")
	case config.StoreSQLite:
		db, err := sql.Open("sqlite", s.cfg.SessionSQLitePath)
		if err != nil {
			return err
		}
		store, err := session.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return err
		}
		s.db = db
		s.sessions = store
	default:
		s.sessions = session.NewMemoryStore()
	}
	return nil
}

func (s *ragchat) initializePipeline() {
	s.pipeline = &rag.Pipeline{
		LLM:           clients.NewLLM(s.cfg.OpenRouterAPIKey, s.cfg.LLMModel),
		Embedder:      clients.NewEmbedder(s.cfg.OpenAIAPIKey, s.cfg.EmbeddingModel),
		Vectors:       clients.NewQdrant(s.cfg.QdrantURL, s.cfg.QdrantAPIKey),
		Crawler:       clients.NewFirecrawl(s.cfg.FirecrawlAPIKey),
		Extractor:     clients.NewLlamaParse(s.cfg.LlamaCloudAPIKey),
		Web:           clients.NewWebSearch(s.cfg.OpenRouterAPIKey, s.cfg.WebSearchModel),
		Sessions:      s.sessions,
		Splitter:      rag.NewSplitter(s.cfg.ChunkSize, s.cfg.ChunkOverlap),
		EmbeddingDim:  s.cfg.EmbeddingDim,
		MaxCrawlPages: s.cfg.MaxCrawlPages,
		NumFAQs:       s.cfg.NumFAQs,
		Logger:        slog.Default(),
	}
}

func (s *ragchat) startWorker() {
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(collectors.NewGoCollector())
	flowMetrics := metrics.NewFlowObserver(s.registry)

	obs := flow.NewCompositeObserver(
		flow.NewLoggingObserver(slog.Default()),
		flowMetrics,
	)

	s.queue = tasks.NewMemoryQueue(1024)
	s.worker = tasks.NewWorker(s.pipeline, s.queue,
		tasks.WithLogger(slog.Default()),
		tasks.WithFlowOptions(flow.WithObserver(obs)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorker = cancel
	go func() {
		if err := s.worker.Run(ctx); err != nil &&
			!errors.Is(err, context.Canceled) {
			slog.Error("worker stopped", "error", err)
		}
	}()
}

func (s *ragchat) startServer() {
	apiServer := server.NewServer(s.pipeline, s.worker,
		server.WithMetrics(s.registry),
		server.WithLogger(slog.Default()),
	)

	s.httpServer = &http.Server{
		Addr:    s.cfg.APIAddr,
		Handler: apiServer.SetupRoutes(),
	}

	go func() {
		slog.Info("http server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
}

func (s *ragchat) shutdown() {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}

	s.stopWorker()

	if s.db != nil {
		_ = s.db.Close()
	}

	slog.Info("server exited")
}
