package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/classify"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/core"
	"github.com/joseph-ayodele/loan-intake/internal/debtprofile"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/export"
	"github.com/joseph-ayodele/loan-intake/internal/extract"
	"github.com/joseph-ayodele/loan-intake/internal/ingest"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/llm/openai"
	repo "github.com/joseph-ayodele/loan-intake/internal/repository"
	"github.com/joseph-ayodele/loan-intake/internal/storage"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem     = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir       = flag.String("dir", "", "directory of proposal documents (required)")
		out       = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		name      = flag.String("name", "", "applicant name (defaults to the directory name)")
		applicant = flag.String("type", string(constants.ApplicantPartnership), "applicant type")
		workers   = flag.Int("workers", 4, "documents processed in parallel")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "proposal.xlsx")
	}
	if *name == "" {
		*name = filepath.Base(filepath.Clean(*dir))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	var db *repo.DB
	if *inmem {
		db, err = repo.OpenSQLite(ctx, ":memory:", logger)
	} else {
		db, err = repo.Open(ctx, repo.Config{
			Driver:      cfg.Database.Driver,
			DSN:         cfg.Database.DSN,
			MaxConns:    cfg.Database.MaxConns,
			MinConns:    cfg.Database.MinConns,
			DialTimeout: cfg.Database.DialTimeout,
		}, logger)
	}
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	uploads := cfg.Storage.UploadsDir
	if *inmem {
		tmp, err := os.MkdirTemp("", "loan-intake-*")
		if err != nil {
			logger.Error("failed to create temp dir", "error", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		uploads = tmp
	}
	uploads, err = filepath.Abs(uploads)
	if err != nil {
		logger.Error("invalid uploads dir", "error", err)
		os.Exit(1)
	}
	store, err := storage.NewLocalStore(uploads, logger)
	if err != nil {
		logger.Error("failed to prepare uploads dir", "error", err)
		os.Exit(1)
	}

	proposals := repo.NewProposalRepository(db, logger)
	profiles := repo.NewDebtProfileRepository(db, logger)

	var (
		vision     llm.ImageTextExtractor
		docAI      llm.DocumentExtractor
		classifier = classify.NewClassifier(nil, logger)
	)
	ai := openai.NewClient(openai.Config{
		APIKey:            cfg.AI.APIKey,
		BaseURL:           cfg.AI.BaseURL,
		Model:             cfg.AI.Model,
		Temperature:       cfg.AI.Temperature,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
	}, logger)
	if ai.Enabled() {
		vision, docAI = ai, ai
		classifier = classify.NewClassifier(ai, logger)
		logger.Info("AI client initialized", "model", cfg.AI.Model)
	} else {
		logger.Warn("AI API key not configured, AI steps will be skipped")
	}

	processor := core.NewProcessor(logger, extract.NewTextExtractor(cfg.OCR, vision, logger), classifier, docAI, proposals, store, core.Options{
		EnableDocumentAI:    cfg.AI.EnableDocumentAI,
		OverwriteEditedText: cfg.Pipeline.OverwriteEditedText,
		TextPrefixLen:       cfg.Pipeline.TextPrefixLen,
	})
	intake := core.NewIntake(proposals, store, nil, logger)

	prop, err := proposals.Create(ctx, &entity.Proposal{
		ApplicantName: *name,
		ApplicantType: constants.ApplicantType(*applicant),
	})
	if err != nil {
		logger.Error("failed to create proposal", "error", err)
		os.Exit(1)
	}
	logger.Info("using proposal", "id", prop.ID, "applicant", prop.ApplicantName)

	ingestor := ingest.NewFSIngestor(intake, logger)
	results, stats, err := ingestor.IngestDirectory(ctx, prop.ID, *dir)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	var docIDs []string
	for _, r := range results {
		docIDs = append(docIDs, r.Documents...)
	}
	logger.Info("ingestion complete",
		"documents", len(docIDs),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed)

	start := time.Now()
	var failures int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*workers)
	errs := make([]error, len(docIDs))
	for i, id := range docIDs {
		g.Go(func() error {
			jobCtx, cancel := context.WithTimeout(gctx, cfg.Queue.JobTimeout)
			defer cancel()
			errs[i] = processor.ProcessDocument(jobCtx, prop.ID, id)
			return nil
		})
	}
	_ = g.Wait()
	for i, err := range errs {
		if err != nil {
			failures++
			logger.Warn("document failed", "document_id", docIDs[i], "error", err)
		}
	}

	debts := debtprofile.NewService(proposals, profiles, store, logger)
	if rows, err := debts.ExtractForProposal(ctx, prop.ID); err != nil {
		if !errors.Is(err, common.ErrInvalidInput) {
			logger.Error("debt profile extraction failed", "error", err)
		}
	} else {
		logger.Info("debt profile extracted", "rows", len(rows))
	}

	xlsx, err := export.NewService(proposals, profiles, logger).ExportProposalXLSX(ctx, prop.ID)
	if err != nil {
		logger.Error("failed to export proposal", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"documents", len(docIDs),
		"failures", failures,
		"output", *out,
		"elapsed_ms", time.Since(start).Milliseconds())
}
