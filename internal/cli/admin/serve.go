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

	"github.com/chroniclehq/chronicle/internal/api/handlers"
	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/database"
	"github.com/chroniclehq/chronicle/internal/embedding"
	"github.com/chroniclehq/chronicle/internal/jobs"
	"github.com/chroniclehq/chronicle/internal/llm"
	"github.com/chroniclehq/chronicle/internal/repository"
	"github.com/chroniclehq/chronicle/internal/server"
	"github.com/chroniclehq/chronicle/internal/service"
	"github.com/chroniclehq/chronicle/internal/storage"
	"github.com/chroniclehq/chronicle/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

const summaryPollInterval = 1 * time.Minute

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the chronicle API server on the specified port",
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

	if !cfg.HasLLM() {
		return fmt.Errorf("no LLM provider configured: set CHRONICLE_OPENAI_API_KEY or CHRONICLE_ANTHROPIC_API_KEY")
	}

	chatClient, err := llm.NewClient(llm.Config{
		Provider:        llm.Provider(cfg.LLMProvider),
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		Model:           cfg.LLMModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	chat := llm.WithTimeout(chatClient, cfg.LLMTimeout)

	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("embeddings require CHRONICLE_OPENAI_API_KEY")
	}
	embedClient := embedding.NewClientWithConfig(embedding.Config{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      openai.EmbeddingModel(cfg.EmbeddingModel),
		Dimensions: cfg.EmbeddingDimensions,
	})
	embedder := embedding.WithTimeout(embedClient, cfg.LLMTimeout)

	eventRepo := repository.NewEventRepository(pool)
	embeddingRepo := repository.NewEmbeddingRepository(pool)
	entityRepo := repository.NewEntityRepository(pool)
	sourceRepo := repository.NewSourceRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)

	var artifactStorage handlers.ArtifactStorage
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
		artifactStorage = s3Client
	}

	sessionSvc := service.NewSessionService(interactionRepo, chat)
	pipeline := service.NewPipeline(
		service.NewFocusResolver(sourceRepo),
		service.NewPlanner(chat),
		service.NewTimelineRetriever(eventRepo, embeddingRepo, embedder, cfg.DefaultLookbackDays),
		service.NewDocumentRetriever(eventRepo, embeddingRepo, entityRepo, embedder, cfg.EntityBoost),
		service.NewAligner(embeddingRepo, cfg.AlignmentThreshold),
		service.NewSynthesizer(chat),
		sessionSvc,
		cfg.TopK,
	)

	router := server.NewRouter(server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(pipeline),
		SourceHandler:   handlers.NewSourceHandler(sourceRepo, artifactStorage),
		TimelineHandler: handlers.NewTimelineHandler(eventRepo),
		SessionHandler:  handlers.NewSessionHandler(sessionSvc),
	})

	summaryWorker := jobs.NewWorker(jobs.NewSummaryWorker(sessionSvc, cfg.SummaryHour), summaryPollInterval)
	go summaryWorker.Start(ctx)
	log.Println("session summary worker started")

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

	summaryWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
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
