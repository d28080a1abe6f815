package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/api/handlers"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/database"
	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/server"
	"github.com/parley-ai/parley/internal/service"
	"github.com/parley-ai/parley/internal/telemetry"
	"github.com/parley-ai/parley/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the parley API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	cfg.Port = resolvePort(cmd, cfg.Port)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("PARLEY_OPENAI_API_KEY is required")
	}

	store, err := newStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	llmClient := llm.NewClient(llm.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	knowledgeSvc := service.NewKnowledgeService(store, llmClient, cfg.ChunkSize, cfg.ChunkOverlap)
	chatSvc := service.NewChatService(knowledgeSvc, llmClient, service.NewConfidenceEstimator(), service.ChatConfig{
		TextModel:          cfg.TextModel,
		MultimodalModel:    cfg.MultimodalModel,
		MaxTokens:          cfg.MaxTokens,
		Temperature:        cfg.Temperature,
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
	})

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc, cfg.TopK),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s (backend: %s)", cfg.Port, cfg.VectorBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// resolvePort prefers an explicitly set --port flag over the
// configured port, even when the flag repeats the default value.
func resolvePort(cmd *cobra.Command, configured string) string {
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetString("port")
		return port
	}
	return configured
}

// newStore builds the vector store backend named by the config.
func newStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorBackend {
	case config.BackendPgvector:
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations"); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("connected to database")
		return vectorstore.NewPgvectorStore(pool), nil

	case config.BackendEmbedded:
		store, err := vectorstore.NewEmbeddedStore(cfg.EmbeddedStorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
