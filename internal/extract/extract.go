package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/ocr"
)

// NewTextExtractor assembles the PDF and image cascades from configuration.
// When vision is non-nil it runs ahead of local tesseract for images.
func NewTextExtractor(cfg common.OCRConfig, vision llm.ImageTextExtractor, logger *slog.Logger, opts ...ocr.Option) *ocr.Extractor {
	if vision != nil {
		opts = append(opts, ocr.WithImageTiers(NewVisionTier(vision)))
	}
	return ocr.NewExtractor(ocr.Config{
		PythonBin:        cfg.PythonBin,
		PyMuPDFScript:    cfg.PyMuPDFScript,
		PdfplumberScript: cfg.PdfplumberScript,
		EnablePoppler:    cfg.EnablePopplerTiers,
		Pdftotext:        cfg.PdftotextBin,
		Pdftoppm:         cfg.PdftoppmBin,
		Tesseract:        cfg.TesseractBin,
		TesseractLang:    cfg.Language,
		TessdataDir:      cfg.TessdataDir,
		DPI:              cfg.DPI,
		MaxPages:         cfg.MaxPages,
	}, logger, opts...)
}
