package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// ErrUnsupportedFormat is returned for files that have no text path (zip, doc, xlsx).
var ErrUnsupportedFormat = errors.New("unsupported format for text extraction")

type Config struct {
	PythonBin        string // default "python3"
	PyMuPDFScript    string // tier 1 script
	PdfplumberScript string // tier 2 script

	// EnablePoppler appends pdftotext and pdftoppm+tesseract after the native tier.
	EnablePoppler bool
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
}

// ExtractionResult is a cascade result plus the tables found in its lines.
type ExtractionResult struct {
	Result
	Format     constants.FileFormat
	Tables     []entity.ExtractedTable
	Confidence float32
}

type Extractor struct {
	cfg    Config
	pdf    *Cascade
	image  *Cascade
	logger *slog.Logger
}

type Option func(*extractorOptions)

type extractorOptions struct {
	runner     Runner
	pdfTiers   []Tier
	imageTiers []Tier
}

// WithRunner replaces the subprocess runner used by the built-in tiers.
func WithRunner(r Runner) Option { return func(o *extractorOptions) { o.runner = r } }

// WithPDFTiers replaces the default PDF cascade.
func WithPDFTiers(tiers ...Tier) Option { return func(o *extractorOptions) { o.pdfTiers = tiers } }

// WithImageTiers puts tiers ahead of the local tesseract fallback.
func WithImageTiers(tiers ...Tier) Option {
	return func(o *extractorOptions) { o.imageTiers = append(o.imageTiers, tiers...) }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	o := extractorOptions{runner: ExecRunner{}}
	for _, opt := range opts {
		opt(&o)
	}

	tess := NewTesseractTier(cfg.Tesseract, cfg.TesseractLang, cfg.TessdataDir, o.runner, logger)
	pdfTiers := o.pdfTiers
	if pdfTiers == nil {
		pdfTiers = []Tier{
			NewJSONEngine(constants.MethodPyMuPDF, cfg.PythonBin, cfg.PyMuPDFScript, o.runner, logger),
			NewJSONEngine(constants.MethodPdfplumber, cfg.PythonBin, cfg.PdfplumberScript, o.runner, logger),
			NewNativeTier(cfg.MaxPages, logger),
		}
		if cfg.EnablePoppler {
			pdfTiers = append(pdfTiers,
				NewPdftotextTier(cfg.Pdftotext, o.runner, logger),
				NewScannedPDFTier(cfg.Pdftoppm, cfg.DPI, cfg.MaxPages, tess, o.runner, logger),
			)
		}
	}
	imageTiers := append(append([]Tier{}, o.imageTiers...), tess)

	return &Extractor{
		cfg:    cfg,
		pdf:    NewCascade(logger, pdfTiers...),
		image:  NewCascade(logger, imageTiers...),
		logger: logger,
	}
}

// PDFTiers lists the PDF cascade order.
func (e *Extractor) PDFTiers() []string { return e.pdf.Tiers() }

// Extract picks a cascade based on file extension and detects tables in the
// recovered lines. Cascade exhaustion is not an error; an unsupported
// extension is.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.ExtOf(path)
	format := constants.MapExtToFormat(ext)
	e.logger.Debug("starting text extraction", "path", path, "ext", ext, "format", format)

	var res Result
	switch format {
	case constants.FormatPDF:
		res = e.pdf.Extract(ctx, path)
	case constants.FormatImage:
		res = e.image.Extract(ctx, path)
	default:
		return ExtractionResult{Format: format}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	out := ExtractionResult{Result: res, Format: format}
	if res.Success {
		pages := res.Pages
		if len(pages) == 0 {
			pages = LinesFromText(res.Text)
		}
		out.Tables = DetectTablesInPages(pages)
		out.Confidence = heuristicConfidence(res.Text)
	}
	out.Duration = time.Since(start)
	e.logger.Info("text extraction done",
		"path", path,
		"method", res.Method,
		"success", res.Success,
		"pages", res.NumPages,
		"tables", len(out.Tables),
		"confidence", out.Confidence,
		"elapsed_ms", out.Duration.Milliseconds())
	return out, nil
}
