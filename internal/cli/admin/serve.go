package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/sailor-labs/sailor/internal/api/handlers"
	"github.com/sailor-labs/sailor/internal/chunker"
	"github.com/sailor-labs/sailor/internal/config"
	"github.com/sailor-labs/sailor/internal/database"
	"github.com/sailor-labs/sailor/internal/domain"
	"github.com/sailor-labs/sailor/internal/embedding"
	"github.com/sailor-labs/sailor/internal/extract"
	"github.com/sailor-labs/sailor/internal/jobs"
	"github.com/sailor-labs/sailor/internal/llm"
	"github.com/sailor-labs/sailor/internal/repository"
	"github.com/sailor-labs/sailor/internal/server"
	"github.com/sailor-labs/sailor/internal/service"
	"github.com/sailor-labs/sailor/internal/storage"
	"github.com/sailor-labs/sailor/internal/telemetry"
	"github.com/sailor-labs/sailor/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sailor API server on the specified port",
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

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	store := vectorstore.NewStore(pool, cfg.SparseDim)
	if err := store.EnsureReady(ctx); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	var blobStore service.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStore = s3Client
	}

	var converter extract.MarkdownConverter
	if cfg.HasConverter() {
		converter = extract.NewConverterClient(cfg.ConverterURL, cfg.ConvertTimeout)
	}
	extractor := extract.NewExtractor(converter)

	var summarizer chunker.Summarizer
	var answerGen service.AnswerGenerator
	if cfg.HasLLM() {
		llmClient := llm.NewClient(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		summarizer = llmClient
		answerGen = llmClient
	} else {
		log.Println("LLM_API_KEY not set: code and table blocks keep raw content, /ask is unavailable")
	}
	chunkSvc := chunker.NewChunker(summarizer, cfg.ChunkSizeTokens)

	var embedder service.EmbeddingGenerator
	backends := map[string]server.HealthChecker{}
	if cfg.HasEmbedding() {
		dense := embedding.NewBackendClient("dense", cfg.DenseEmbeddingURL, cfg.EmbedTimeout, cfg.EmbedMaxRetries, cfg.EmbedRetryDelay)
		sparse := embedding.NewBackendClient("sparse", cfg.SparseEmbeddingURL, cfg.EmbedTimeout, cfg.EmbedMaxRetries, cfg.EmbedRetryDelay)
		embedder = embedding.NewDualGenerator(dense, sparse, cfg.EmbedBatchSize)
		backends["dense_embedding"] = dense
		backends["sparse_embedding"] = sparse
	}

	ingestSvc := service.NewIngestService(docRepo, blobStore, extractor, chunkSvc, embedder, store, service.IngestConfig{
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		PagesPerBatch:      cfg.PagesPerBatch,
		MaxParallelBatches: cfg.MaxParallelBatches,
		SyncIngest:         cfg.SyncIngest && embedder != nil,
	})

	var ingestWorker *jobs.Worker
	if embedder != nil {
		if !cfg.SyncIngest {
			ingestWorker = jobs.NewWorker(docRepo, ingestSvc, cfg.WorkerPollInterval)
			go ingestWorker.Start(ctx)
			log.Println("ingest worker started")
		}
	} else {
		log.Println("embedding backends not configured: uploads stay pending until DENSE_EMBEDDING_URL and SPARSE_EMBEDDING_URL are set")
	}

	documentHandler := handlers.NewDocumentHandler(ingestSvc)

	var chatHandler *handlers.ChatHandler
	if embedder != nil {
		retrievalSvc := service.NewRetrievalService(embedder, store, service.RetrievalConfig{
			ScoreThreshold: cfg.ScoreThreshold,
			NeighborChunks: cfg.NeighborChunks,
		})
		askSvc := service.NewAskService(retrievalSvc, answerGen)
		chatHandler = handlers.NewChatHandler(retrievalSvc, askSvc)
	} else {
		noop := &noOpChatService{}
		chatHandler = handlers.NewChatHandler(noop, noop)
	}

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: documentHandler,
		ChatHandler:     chatHandler,
		MaxBodyBytes:    cfg.MaxUploadBytes(),
		Backends:        backends,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type noOpChatService struct{}

func (s *noOpChatService) Query(ctx context.Context, userID string, input service.QueryInput) ([]*domain.RetrievedResult, error) {
	return nil, fmt.Errorf("retrieval not configured: embedding backends required")
}

func (s *noOpChatService) Ask(ctx context.Context, userID string, input service.QueryInput) (*service.AskResult, error) {
	return nil, fmt.Errorf("retrieval not configured: embedding backends required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
