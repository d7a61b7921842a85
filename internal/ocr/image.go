package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// TesseractTier recognizes text in a single image with a local tesseract
// binary. It backs the vision model when no API key is configured.
type TesseractTier struct {
	bin         string
	lang        string
	tessdataDir string
	runner      Runner
	logger      *slog.Logger
}

func NewTesseractTier(bin, lang, tessdataDir string, runner Runner, logger *slog.Logger) *TesseractTier {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractTier{bin: bin, lang: lang, tessdataDir: tessdataDir, runner: runner, logger: logger}
}

func (t *TesseractTier) Name() string { return constants.MethodTesseract }

func (t *TesseractTier) Attempt(ctx context.Context, path string) (TierResult, error) {
	txt, err := t.recognize(ctx, path)
	if err != nil {
		return TierResult{}, err
	}
	return TierResult{Text: Normalize(txt), NumPages: 1}, nil
}

func (t *TesseractTier) recognize(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", t.lang}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.bin, t.logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
