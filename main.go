package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"anomalyexplain/adapters/db/postgres/migrations"
	"anomalyexplain/adapters/excel"
	"anomalyexplain/adapters/postgres"
	"anomalyexplain/domain/dataset"
	"anomalyexplain/internal/api"
	"anomalyexplain/internal/config"
	"anomalyexplain/internal/errors"
	"anomalyexplain/internal/explain"
	"anomalyexplain/internal/metrics"
	"anomalyexplain/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and applies pending migrations
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	db.SetConnMaxLifetime(appConfig.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}

	if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("database migration failed", err)
	}

	return db, nil
}

// loadReference reads the startup reference dataset, if one is configured
func loadReference(appConfig *config.Config) (*dataset.Reference, error) {
	if appConfig.Data.ReferenceFile == "" {
		log.Printf("No REFERENCE_FILE configured; requests must carry their own reference")
		return nil, nil
	}

	reader := excel.NewDataReader(appConfig.Data.ReferenceFile, excel.DefaultReaderConfig())
	ref, err := reader.ReadReference()
	if err != nil {
		return nil, errors.DatasetError("failed to load reference dataset", err)
	}
	log.Printf("Loaded reference %s: %d rows, %d numeric columns (fingerprint %s)",
		appConfig.Data.ReferenceFile, ref.NumRows(), len(ref.Columns()), ref.Fingerprint().Short())
	return ref, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref, err := loadReference(appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize reference: %v", err)
	}

	var repo ports.ExplanationRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(ctx, appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewExplanationRepository(db)
		log.Println("Explanation persistence enabled")
	} else {
		log.Println("No DATABASE_URL configured; explanations will not be stored")
	}

	engine := explain.NewEngine(explain.Options{Workers: appConfig.Explain.Workers})
	server := api.NewServer(api.Options{
		Engine:       engine,
		Reference:    ref,
		Repository:   repo,
		Metrics:      metrics.New(),
		MaxBatchSize: appConfig.Explain.MaxBatchSize,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting anomaly explanation server on port %s", appConfig.Server.Port)
		errCh <- server.Start(":" + appConfig.Server.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
		}
	}
}
