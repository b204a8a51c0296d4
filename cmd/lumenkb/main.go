package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/config"
	"github.com/lumen-skin/lumenkb/internal/corpus"
	dbRedis "github.com/lumen-skin/lumenkb/internal/db/redis"
	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/index"
	idxChromem "github.com/lumen-skin/lumenkb/internal/index/chromem"
	idxMemory "github.com/lumen-skin/lumenkb/internal/index/memory"
	logpkg "github.com/lumen-skin/lumenkb/internal/logger"
	"github.com/lumen-skin/lumenkb/internal/metrics"
	analysesrepo "github.com/lumen-skin/lumenkb/internal/repository/analyses"
	chathistoryrepo "github.com/lumen-skin/lumenkb/internal/repository/chathistory"
	"github.com/lumen-skin/lumenkb/internal/repository/embcache"
	chiTransport "github.com/lumen-skin/lumenkb/internal/transport/chi"
	openaiTransport "github.com/lumen-skin/lumenkb/internal/transport/openai"
	chatuc "github.com/lumen-skin/lumenkb/internal/usecase/chat"
	healthuc "github.com/lumen-skin/lumenkb/internal/usecase/health"
	ingestuc "github.com/lumen-skin/lumenkb/internal/usecase/ingest"
	keyworduc "github.com/lumen-skin/lumenkb/internal/usecase/keyword"
	recommenduc "github.com/lumen-skin/lumenkb/internal/usecase/recommend"
	retrieveruc "github.com/lumen-skin/lumenkb/internal/usecase/retriever"
	routineuc "github.com/lumen-skin/lumenkb/internal/usecase/routine"
	"github.com/lumen-skin/lumenkb/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lumenkb API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index_driver", cfg.Index.Driver),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	// Knowledge base
	kb, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("Failed to load knowledge corpus", zap.Error(err))
	}
	logger.Info("Knowledge corpus loaded", zap.Int("articles", kb.Len()))

	// Embedder chain: OpenAI -> Cached
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)

	// Vector index. The in-memory driver starts empty on every boot; the
	// persistent chromem driver only needs seeding when its namespace is
	// still empty (first deployment or a wiped data dir).
	var vectorIndex index.VectorIndex
	seedIndex := true
	switch cfg.Index.Driver {
	case "memory":
		vectorIndex = idxMemory.New()
	case "chromem":
		ci, err := idxChromem.New(cfg.Index.Path, true)
		if err != nil {
			logger.Fatal("Failed to open chromem index", zap.Error(err))
		}
		n, err := ci.Count(cfg.Index.Namespace)
		if err != nil {
			logger.Fatal("Failed to inspect chromem index", zap.Error(err))
		}
		seedIndex = n == 0
		if !seedIndex {
			logger.Info("Reusing persisted vector index", zap.Int("documents", n))
		}
		vectorIndex = ci
	default:
		logger.Fatal("Unknown index driver", zap.String("driver", cfg.Index.Driver))
	}

	ingestSvc := ingestuc.NewService(embedder, vectorIndex, kb, logger)

	if seedIndex && cfg.Embedding.APIKey != "" {
		if n, err := ingestSvc.WarmLoad(ctx, cfg.Index.Namespace); err != nil {
			logger.Warn("Index warm load incomplete, keyword fallback covers the gap",
				zap.Int("indexed", n), zap.Error(err))
		}
	}

	// Retrieval core
	ranker := keyworduc.New(kb)
	retrieverSvc := retrieveruc.NewService(
		embedder, vectorIndex, ranker, kb, logger,
		retrieveruc.WithVectorTimeout(time.Duration(cfg.Retrieval.VectorTimeoutMs)*time.Millisecond),
	)

	// Learning Hub
	chatModel := openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		APIKey:    cfg.Chat.APIKey,
		BaseURL:   cfg.Chat.BaseURL,
		Model:     cfg.Chat.Model,
		MaxTokens: cfg.Chat.MaxTokens,
		Logger:    logger,
	})
	historyRepo := chathistoryrepo.New(store, logger)
	analysesRepo := analysesrepo.New(store, logger)

	recommendSvc := recommenduc.NewService(kb, analysesRepo, logger)
	chatSvc := chatuc.NewService(chatModel, retrieverSvc, historyRepo, analysesRepo, recommendSvc, logger)
	routineSvc := routineuc.NewService()

	healthSvc := healthuc.New(store, baseEmbedder, kb)

	server := chiTransport.NewServer(
		retrieverSvc, chatSvc, recommendSvc, routineSvc, ingestSvc,
		healthSvc, kb, cfg.Index.Namespace, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
