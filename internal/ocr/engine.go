package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// JSONEngine runs an out-of-process extractor script that prints one JSON
// object: {success, text, numPages|num_pages, error}.
type JSONEngine struct {
	name   string
	bin    string
	script string
	runner Runner
	logger *slog.Logger
}

func NewJSONEngine(name, bin, script string, runner Runner, logger *slog.Logger) *JSONEngine {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONEngine{name: name, bin: bin, script: script, runner: runner, logger: logger}
}

func (e *JSONEngine) Name() string { return e.name }

type enginePayload struct {
	Success       *bool  `json:"success"`
	Text          string `json:"text"`
	NumPages      *int   `json:"numPages"`
	NumPagesSnake *int   `json:"num_pages"`
	Error         string `json:"error"`
}

func (e *JSONEngine) Attempt(ctx context.Context, path string) (TierResult, error) {
	out, errb, err := e.runner.Run(ctx, e.bin, e.logger, e.script, path)
	if err != nil {
		return TierResult{}, fmt.Errorf("%s exited: %w (stderr: %s)", e.name, err, truncate(string(errb), 512))
	}
	var p enginePayload
	if err := json.Unmarshal(bytes.TrimSpace(out), &p); err != nil {
		return TierResult{}, fmt.Errorf("%s: malformed output: %w", e.name, err)
	}
	if p.Success != nil && !*p.Success {
		msg := p.Error
		if msg == "" {
			msg = "reported failure"
		}
		return TierResult{}, errors.New(e.name + ": " + msg)
	}
	pages := 0
	switch {
	case p.NumPages != nil:
		pages = *p.NumPages
	case p.NumPagesSnake != nil:
		pages = *p.NumPagesSnake
	case p.Text != "":
		pages = 1 + strings.Count(p.Text, "\f")
	}
	return TierResult{Text: p.Text, NumPages: pages}, nil
}
