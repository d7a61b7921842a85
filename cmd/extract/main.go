package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/loan-intake/internal/classify"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/extract"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/llm/openai"
)

type output struct {
	File       string                  `json:"file"`
	Method     string                  `json:"method"`
	Success    bool                    `json:"success"`
	Pages      int                     `json:"pages"`
	Confidence float32                 `json:"confidence"`
	Category   string                  `json:"autoCategory"`
	TextLength int                     `json:"textLength"`
	Text       string                  `json:"text,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
	Tables     []entity.ExtractedTable `json:"tables,omitempty"`
	AI         json.RawMessage         `json:"documentAI,omitempty"`
	AIError    string                  `json:"documentAIError,omitempty"`
	ElapsedMS  int64                   `json:"elapsedMs"`
}

func main() {
	var (
		target   = flag.String("target", "", "Document AI target: partnership-deed or bank-statement")
		fullText = flag.Bool("text", false, "include the recovered text")
		timeout  = flag.Duration("timeout", 3*time.Minute, "overall timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extract [--target partnership-deed|bank-statement] [--text] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ai := openai.NewClient(openai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	}, logger)
	var vision llm.ImageTextExtractor
	if ai.Enabled() {
		vision = ai
	}

	start := time.Now()
	res, err := extract.NewTextExtractor(cfg.OCR, vision, logger).Extract(ctx, path)
	if err != nil {
		logger.Error("extraction failed", "file", path, "error", err)
		os.Exit(1)
	}

	out := output{
		File:       path,
		Method:     res.Method,
		Success:    res.Success,
		Pages:      res.NumPages,
		Confidence: res.Confidence,
		Category:   string(classify.AutoCategorize(path, res.Text)),
		TextLength: len(res.Text),
		Warnings:   res.Warnings,
		Tables:     res.Tables,
	}
	if *fullText {
		out.Text = res.Text
	}

	if *target != "" {
		t, err := llm.TargetFor(llm.TargetKind(*target))
		if err != nil {
			logger.Error("invalid target", "target", *target, "error", err)
			os.Exit(2)
		}
		if !ai.Enabled() {
			out.AIError = "AI API key not configured"
		} else {
			doc := ai.ExtractDocument(ctx, t, res.Text, res.Tables)
			if doc.Success {
				out.AI = doc.Raw
			} else {
				out.AIError = doc.Error
			}
		}
	}
	out.ElapsedMS = time.Since(start).Milliseconds()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
