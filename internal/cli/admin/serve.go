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

	"github.com/marca-labs/brandgov/internal/ai"
	"github.com/marca-labs/brandgov/internal/api/handlers"
	"github.com/marca-labs/brandgov/internal/config"
	"github.com/marca-labs/brandgov/internal/database"
	"github.com/marca-labs/brandgov/internal/jobs"
	"github.com/marca-labs/brandgov/internal/repository"
	"github.com/marca-labs/brandgov/internal/server"
	"github.com/marca-labs/brandgov/internal/service"
	"github.com/marca-labs/brandgov/internal/storage"
	"github.com/marca-labs/brandgov/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the brandgov API server on the specified port",
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

	if cfg.JWTSecret == "" {
		return fmt.Errorf("BRANDGOV_JWT_SECRET is required")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("BRANDGOV_OPENAI_API_KEY is required")
	}

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnv,
			TracesSampleRate: cfg.SentrySampleRate,
			Debug:            cfg.Debug,
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

	userRepo := repository.NewUserRepository(pool)
	manualRepo := repository.NewManualRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool, cfg.IVFFlatProbes)
	assetRepo := repository.NewAssetRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	journeyRepo := repository.NewJourneyRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var imageStore service.ImageStore
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
		imageStore = s3Client
	} else {
		log.Println("object storage not configured, audit images will not be persisted")
	}

	aiClient := ai.NewClientWithConfig(ai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		TextModel:           cfg.TextModel,
		VisionModel:         cfg.VisionModel,
	})

	uuidGen := &service.DefaultUUIDGenerator{}

	chunkCfg := service.DefaultChunkConfig()
	chunkCfg.MaxChars = cfg.ChunkMaxChars
	chunkCfg.Overlap = cfg.ChunkOverlap

	indexSvc := service.NewIndexService(aiClient, txRunner, chunkCfg)
	manualSvc := service.NewBrandManualService(manualRepo, aiClient, indexSvc)
	retriever := service.NewRetrievalService(aiClient, chunkRepo, service.RetrieverConfig{
		DefaultTopK:    cfg.RetrieverTopK,
		ExactThreshold: cfg.ExactThreshold,
	})
	composer := service.NewPromptComposer(cfg.PromptBudget)
	assetSvc := service.NewCreativeAssetService(
		assetRepo, manualRepo, auditRepo, journeyRepo,
		retriever, composer, aiClient, txRunner, cfg.RetrieverTopK,
	)
	workflowEngine := service.NewWorkflowEngine(assetRepo, auditRepo, txRunner)
	auditSvc := service.NewAuditService(assetRepo, journeyRepo, retriever, aiClient, imageStore, txRunner)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, uuidGen)

	maintainer := jobs.NewIndexMaintainer(chunkRepo, cfg.IndexRebuildChurn)
	indexWorker := jobs.NewWorker(maintainer, cfg.IndexRebuildInterval)
	go indexWorker.Start(ctx)
	log.Println("index maintenance worker started")

	router := server.NewRouter(server.RouterConfig{
		TokenValidator:    authSvc,
		AuthHandler:       handlers.NewAuthHandler(authSvc),
		ManualHandler:     handlers.NewManualHandler(manualSvc, retriever),
		AssetHandler:      handlers.NewAssetHandler(assetSvc),
		GovernanceHandler: handlers.NewGovernanceHandler(workflowEngine, auditSvc),
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

	indexWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
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
