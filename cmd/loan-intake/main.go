package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/loan-intake/internal/async"
	"github.com/joseph-ayodele/loan-intake/internal/classify"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/core"
	"github.com/joseph-ayodele/loan-intake/internal/debtprofile"
	"github.com/joseph-ayodele/loan-intake/internal/export"
	"github.com/joseph-ayodele/loan-intake/internal/extract"
	"github.com/joseph-ayodele/loan-intake/internal/ingest"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/llm/openai"
	"github.com/joseph-ayodele/loan-intake/internal/metrics"
	repo "github.com/joseph-ayodele/loan-intake/internal/repository"
	"github.com/joseph-ayodele/loan-intake/internal/server"
	"github.com/joseph-ayodele/loan-intake/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	uploads, err := filepath.Abs(cfg.Storage.UploadsDir)
	if err != nil {
		logger.Error("invalid uploads dir", "dir", cfg.Storage.UploadsDir, "error", err)
		os.Exit(1)
	}
	store, err := storage.NewLocalStore(uploads, logger)
	if err != nil {
		logger.Error("failed to prepare uploads dir", "dir", uploads, "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	proposals := repo.NewProposalRepository(db, logger)
	profiles := repo.NewDebtProfileRepository(db, logger)

	ai := openai.NewClient(openai.Config{
		APIKey:            cfg.AI.APIKey,
		BaseURL:           cfg.AI.BaseURL,
		Model:             cfg.AI.Model,
		Temperature:       cfg.AI.Temperature,
		Referer:           cfg.AI.Referer,
		Title:             cfg.AI.Title,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		Retry:             retryPolicy(cfg.AI),
	}, logger)

	var (
		vision     llm.ImageTextExtractor
		docAI      llm.DocumentExtractor
		classifier = classify.NewClassifier(nil, logger)
	)
	if ai.Enabled() {
		vision, docAI = ai, ai
		classifier = classify.NewClassifier(ai, logger)
		logger.Info("AI client initialized", "model", cfg.AI.Model, "document_ai", cfg.AI.EnableDocumentAI)
	} else {
		logger.Warn("AI API key not configured, running rules and local OCR only")
	}

	text := extract.NewTextExtractor(cfg.OCR, vision, logger)
	processor := core.NewProcessor(logger, text, classifier, docAI, proposals, store, core.Options{
		EnableDocumentAI:    cfg.AI.EnableDocumentAI,
		OverwriteEditedText: cfg.Pipeline.OverwriteEditedText,
		TextPrefixLen:       cfg.Pipeline.TextPrefixLen,
	})
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
	)
	intake := core.NewIntake(proposals, store, queue, logger)

	if cfg.Storage.InboxDir != "" {
		ingestor := ingest.NewFSIngestor(intake, logger)
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Root:        cfg.Storage.InboxDir,
				InitialScan: true,
				Debounce:    cfg.Storage.InboxDebounce,
			})
			if err != nil {
				logger.Error("inbox watcher stopped", "dir", cfg.Storage.InboxDir, "error", err)
			}
		}()
	}

	api := server.New(server.Deps{
		DB:             db,
		Proposals:      proposals,
		Intake:         intake,
		Processor:      processor,
		DebtProfile:    debtprofile.NewService(proposals, profiles, store, logger),
		Export:         export.NewService(proposals, profiles, logger),
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("loan-intake listening", "addr", cfg.Server.HTTPAddr, "uploads", uploads, "pdf_tiers", text.PDFTiers())
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}

func retryPolicy(cfg common.AIConfig) *llm.RetryPolicy {
	p := llm.DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		p.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryInitialDelay > 0 {
		p.InitialDelay = cfg.RetryInitialDelay
	}
	return &p
}
