package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/gentleomega/go-aibob/pkg/audit"
	"github.com/gentleomega/go-aibob/pkg/common/config"
	"github.com/gentleomega/go-aibob/pkg/common/database"
	"github.com/gentleomega/go-aibob/pkg/common/kafka"
	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/middleware"
	"github.com/gentleomega/go-aibob/pkg/discovery"
	"github.com/gentleomega/go-aibob/pkg/observability/metrics"
	"github.com/gentleomega/go-aibob/pkg/pipeline"
	"github.com/gentleomega/go-aibob/pkg/provider"
	"github.com/gentleomega/go-aibob/pkg/queue"
)

func main() {
	logger.Init()
	cfg := config.Load()
	if err := cfg.LoadCredentialPool(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load credential pool")
	}

	ctx := context.Background()

	mongoClient, err := database.NewMongoClient(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	var auditRepo *audit.Repository
	pg, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Postgres unavailable, running without the review audit log")
	} else {
		auditRepo = audit.NewRepository(pg)
		if err := auditRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate audit schema")
		}
		defer database.ClosePostgres(pg)
	}

	redisClient := database.NewRedis(cfg)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg)
	defer producer.Close()

	aiProvider := buildProvider(cfg)
	logger.Log.WithField("provider", aiProvider.Name()).Info("AI provider configured")

	repo := queue.NewRepository(mongoClient.Collection(cfg.MongoCollection))

	var auditor queue.AuditRecorder
	if auditRepo != nil {
		auditor = auditRepo
	}
	queueService := queue.NewService(repo, producer, auditor, redisClient, cfg.StatsCacheTTL)
	discoveryService := discovery.NewService(aiProvider)
	pipelineService := pipeline.NewService(queueService, aiProvider, producer,
		cfg.ProviderTimeout, cfg.URLAnalysisDelay, cfg.MaxConcurrentRuns)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)
	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	queue.NewHandler(queueService, aiProvider, auditRepo).Register(api)
	pipeline.NewHandler(pipelineService).Register(api)
	discovery.NewHandler(discoveryService).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("GO-AIBOB service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down GO-AIBOB service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("GO-AIBOB service stopped")
}

func buildProvider(cfg *config.Config) provider.Provider {
	switch cfg.AIProvider {
	case "anthropic":
		return provider.NewAnthropicClient(cfg.AnthropicAPIKeys, cfg.AnthropicBaseURL, cfg.AnthropicModelName)
	case "inference":
		return provider.NewInferenceClient(cfg.InferenceBaseURL, cfg.InferenceAPIKey)
	default:
		return provider.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModelName, cfg.OpenAIMinDelay)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
