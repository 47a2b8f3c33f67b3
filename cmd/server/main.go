package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/cleanup"
	"github.com/codebuildervaibhav/groq-transcribe/internal/config"
	"github.com/codebuildervaibhav/groq-transcribe/internal/logging"
	"github.com/codebuildervaibhav/groq-transcribe/internal/queue"
	"github.com/codebuildervaibhav/groq-transcribe/internal/server"
	"github.com/codebuildervaibhav/groq-transcribe/internal/storage"
	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: failed to read .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logBuffer := logging.NewLogBuffer()
	logger := logging.New(logBuffer, *debug)
	defer logger.Sync()

	logger.Info("Initializing components...")

	if cfg.Provider.APIKey == "" {
		logger.Warn("GROQ_API_KEY is not set; transcription requests will fail with an authentication error")
	}

	provider := transcription.NewGroqProvider(transcription.GroqConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.ProviderTimeout(),
	})
	transcriber := transcription.NewTranscriber(provider, transcription.Options{
		LanguageHint: cfg.Transcription.Language,
		PriorPrompt:  cfg.Transcription.Prompt,
	})
	opts := transcriber.Options()
	logger.Infow("Transcription provider ready",
		"model", provider.Model(),
		"base_url", cfg.Provider.BaseURL,
		"language", opts.LanguageHint,
		"prompt_set", opts.PriorPrompt != "")

	archive, db := buildArchive(cfg, provider.Model(), logger)
	if db != nil {
		defer db.Close()
	}

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, transcriber, archive, logger)
	workerPool.Start()

	var cleanupScheduler *cleanup.Scheduler
	if cfg.Storage.OutputDir != "" || db != nil {
		var pruner cleanup.RecordPruner
		if db != nil {
			pruner = db
		}
		cleanupScheduler = cleanup.NewScheduler(
			cfg.Storage.OutputDir,
			pruner,
			cfg.Cleanup.IntervalMinutes,
			cfg.Cleanup.MaxAgeHours,
			logger,
		)
		cleanupScheduler.Start()
	}

	deps := server.Dependencies{
		Pool:          workerPool,
		Logs:          logBuffer,
		Logger:        logger,
		MaxFileSizeMB: cfg.Limits.MaxFileSizeMB,
	}
	if db != nil {
		deps.Records = db
	}
	app := server.New(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Server starting on %s (max upload %d bytes)", addr, cfg.MaxFileSize())
	logger.Info("Endpoints: GET / | POST /api/transcribe | POST /api/transcribe/gdrive | GET /ws/stream | GET /transcripts | GET /transcripts/:id/text | GET /logs | GET /health")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logger.Errorf("Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	workerPool.Stop()
	if cleanupScheduler != nil {
		cleanupScheduler.Stop()
	}
}

// buildArchive wires the optional transcript sinks. Each one is skipped when
// its config is empty or it fails to start.
func buildArchive(cfg *config.Config, model string, logger *zap.SugaredLogger) (queue.Archive, *storage.MetadataDB) {
	var archive queue.Archive

	if cfg.Storage.OutputDir != "" {
		if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
			logger.Fatalf("Failed to create output directory: %v", err)
		}
		local := storage.NewLocalStorage(cfg.Storage.OutputDir, model)
		archive.Local = local
		logger.Infof("Archiving transcripts to %s", local.OutputDir())
	}

	var db *storage.MetadataDB
	if cfg.Storage.Database != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0755); err != nil {
			logger.Fatalf("Failed to create database directory: %v", err)
		}
		var err error
		db, err = storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		archive.DB = db
	}

	if cfg.GoogleDrive.CredentialsFile == "" {
		return archive, db
	}
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err != nil {
		logger.Info("Google Drive credentials not found - archiving locally only")
		return archive, db
	}

	driveClient, err := storage.NewDriveClient(
		context.Background(),
		cfg.GoogleDrive.CredentialsFile,
		cfg.GoogleDrive.TokenFile,
		cfg.GoogleDrive.FolderName,
		model,
	)
	if err != nil {
		logger.Warnf("Google Drive not available: %v", err)
		return archive, db
	}

	archive.Drive = driveClient
	logger.Info("Google Drive integration enabled")
	return archive, db
}
