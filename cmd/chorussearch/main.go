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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/cache"
	"github.com/chorus-cloud/chorussearch/internal/config"
	logpkg "github.com/chorus-cloud/chorussearch/internal/logger"
	"github.com/chorus-cloud/chorussearch/internal/metrics"
	qdrantrepo "github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
	"github.com/chorus-cloud/chorussearch/internal/transport/httpapi"
	"github.com/chorus-cloud/chorussearch/internal/transport/ollama"
	healthuc "github.com/chorus-cloud/chorussearch/internal/usecase/health"
	ingestuc "github.com/chorus-cloud/chorussearch/internal/usecase/ingest"
	searchuc "github.com/chorus-cloud/chorussearch/internal/usecase/search"
	"github.com/chorus-cloud/chorussearch/internal/version"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting chorussearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("qdrant_host", cfg.Qdrant.Host),
		zap.String("collection", cfg.Qdrant.Collection),
	)

	store, err := qdrantrepo.NewStore(qdrantrepo.Config{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		APIKey:         cfg.Qdrant.APIKey,
		Collection:     cfg.Qdrant.Collection,
		VectorSize:     cfg.Qdrant.VectorSize,
		ConnectRetries: cfg.Qdrant.ConnectRetries,
		RetryDelay:     time.Duration(cfg.Qdrant.RetryDelaySec) * time.Second,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create qdrant store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Connect(ctx); err != nil {
		logger.Fatal("Qdrant not ready", zap.Error(err))
	}
	logger.Info("Connected to qdrant")

	llm := ollama.New(&ollama.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		EmbeddingModel: cfg.Ollama.EmbeddingModel,
		LLMModel:       cfg.Ollama.LLMModel,
		Logger:         logger,
	})

	// Register pipeline metrics explicitly (no init()).
	metrics.RegisterPipelineMetrics()

	cacheStore, err := buildCache(cfg.Cache, logger)
	if err != nil {
		logger.Fatal("Failed to create cache backend", zap.Error(err))
	}
	logger.Info("Cache backend created", zap.String("backend", cfg.Cache.Backend))

	searchSvc := searchuc.New(store, llm, llm, cacheStore, searchuc.Options{
		RetrieveCount:   cfg.Pipeline.RetrieveCount,
		ContextSize:     cfg.Pipeline.ContextSize,
		PerItemReasons:  cfg.Pipeline.PerItemReasonsEnabled(),
		OverallAnalysis: cfg.Pipeline.AnalysisEnabled(),
	}, logger)
	ingestSvc := ingestuc.New(store, llm, logger)
	healthSvc := healthuc.New(store, llm)

	server := httpapi.NewServer(searchSvc, ingestSvc, healthSvc, store, cfg.Pipeline.DefaultK, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

// buildCache selects the result cache backend from configuration.
func buildCache(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemory(cfg.MaxSize, time.Duration(cfg.TTLSec)*time.Second), nil
	case "redis":
		r, err := cache.NewRedis(cache.RedisConfig{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
			Prefix:   cfg.Prefix,
			TTL:      time.Duration(cfg.TTLSec) * time.Second,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request.
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
