package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// PdftotextTier shells out to poppler's pdftotext in layout mode, which keeps
// column gaps that LinesFromText turns back into fragments.
type PdftotextTier struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPdftotextTier(bin string, runner Runner, logger *slog.Logger) *PdftotextTier {
	if bin == "" {
		bin = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PdftotextTier{bin: bin, runner: runner, logger: logger}
}

func (t *PdftotextTier) Name() string { return constants.MethodPdftotext }

func (t *PdftotextTier) Attempt(ctx context.Context, path string) (TierResult, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := t.runner.Run(ctx, t.bin, t.logger, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return TierResult{Warnings: []string{string(errb)}}, fmt.Errorf("pdftotext: %w", err)
	}
	text := strings.TrimRight(string(out), "\f\n")
	// A form-feed \f is used as page separator by default
	return TierResult{Text: text, NumPages: 1 + strings.Count(text, "\f")}, nil
}

// ScannedPDFTier rasterizes pages with pdftoppm and OCRs them with tesseract.
type ScannedPDFTier struct {
	pdftoppm string
	dpi      int
	maxPages int
	ocr      *TesseractTier
	runner   Runner
	logger   *slog.Logger
}

func NewScannedPDFTier(pdftoppm string, dpi, maxPages int, ocr *TesseractTier, runner Runner, logger *slog.Logger) *ScannedPDFTier {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScannedPDFTier{pdftoppm: pdftoppm, dpi: dpi, maxPages: maxPages, ocr: ocr, runner: runner, logger: logger}
}

func (t *ScannedPDFTier) Name() string { return constants.MethodTesseract }

func (t *ScannedPDFTier) Attempt(ctx context.Context, path string) (TierResult, error) {
	tmpDir, err := os.MkdirTemp("", "li-pp-*")
	if err != nil {
		return TierResult{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := t.runner.Run(ctx, t.pdftoppm, t.logger, "-r", fmt.Sprintf("%d", t.dpi), "-png", path, prefix)
	if err != nil {
		return TierResult{Warnings: []string{string(errb)}}, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if t.maxPages > 0 && len(matches) > t.maxPages {
		matches = matches[:t.maxPages]
	}
	if len(matches) == 0 {
		return TierResult{}, fmt.Errorf("pdftoppm produced no images")
	}

	var (
		b     strings.Builder
		warns []string
	)
	for _, img := range matches {
		txt, err := t.ocr.recognize(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f")
		}
		b.WriteString(txt)
	}
	return TierResult{Text: b.String(), NumPages: len(matches), Warnings: warns}, nil
}
