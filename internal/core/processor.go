package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/metrics"
	"github.com/joseph-ayodele/loan-intake/internal/ocr"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

// TextExtractor recovers text and tables from a stored file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// PathResolver maps a stored filename to its location on disk.
type PathResolver interface {
	Path(proposalID uuid.UUID, filename string) string
}

// DocumentClassifier assigns a sub-type label within a category.
type DocumentClassifier interface {
	Classify(ctx context.Context, filename, text string, cat constants.Category, p *entity.Proposal) string
}

type Options struct {
	// EnableDocumentAI puts the model ahead of the regex extractors.
	EnableDocumentAI bool
	// OverwriteEditedText lets background passes replace reviewer-edited text.
	OverwriteEditedText bool
	// TextPrefixLen is how much text is kept for categories that do not
	// retain the full text.
	TextPrefixLen int
}

// Processor runs the extraction pipeline for one document: text recovery,
// table detection, classification, then structured facts.
type Processor struct {
	logger     *slog.Logger
	text       TextExtractor
	classifier DocumentClassifier
	docAI      llm.DocumentExtractor
	proposals  repository.ProposalRepository
	files      PathResolver
	opts       Options
	now        func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	text TextExtractor,
	classifier DocumentClassifier,
	docAI llm.DocumentExtractor,
	proposals repository.ProposalRepository,
	files PathResolver,
	opts Options,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TextPrefixLen <= 0 {
		opts.TextPrefixLen = 500
	}
	return &Processor{
		logger:     logger,
		text:       text,
		classifier: classifier,
		docAI:      docAI,
		proposals:  proposals,
		files:      files,
		opts:       opts,
		now:        time.Now,
	}
}

// finalWriteTimeout bounds the status write that ends a pass. It runs
// detached from the job context so an expired job still records its outcome.
const finalWriteTimeout = 10 * time.Second

func detachedWrite(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
}

// textOutcome is what the text stage produced for one document.
type textOutcome struct {
	text   string
	pages  *int
	tables []entity.ExtractedTable
	method string
	status constants.JobStatus
	err    error
}

// ProcessDocument is the background pass for one uploaded document. A
// failure degrades only this document; the returned error is for logging.
func (p *Processor) ProcessDocument(ctx context.Context, proposalID uuid.UUID, docID string) (err error) {
	start := time.Now()
	log := p.logger.With("proposal_id", proposalID, "document_id", docID)
	if trace := common.TraceIDFromContext(ctx); trace != "" {
		log = log.With("trace_id", trace)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
			log.Error("processor.panic", "panic", r)
			wctx, cancel := detachedWrite(ctx)
			defer cancel()
			p.markFailed(wctx, proposalID, docID, err)
		}
	}()

	prop, err := p.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	doc, ok := prop.FindDocument(docID)
	if !ok {
		return common.NotFoundError(fmt.Sprintf("document %s not found", docID))
	}
	if _, err := p.proposals.PatchDocument(ctx, proposalID, doc.ID, entity.DocumentPatch{
		Status: entity.Ptr(constants.JobStatusRunning),
	}); err != nil {
		return err
	}

	out := p.extractText(ctx, proposalID, *doc)
	if out.err != nil {
		log.Warn("processor.text.failed", "error", out.err)
	}

	var details *entity.ExtractedDetails
	if out.text != "" {
		details = p.extractDetails(ctx, prop, doc.Category, out.text, out.tables)
	}

	label := ""
	if doc.Category != constants.Uncategorized {
		label = p.classifier.Classify(ctx, doc.OriginalName, out.text, doc.Category, prop)
	}

	patch := p.resultPatch(*doc, out, details, doc.Category.KeepsFullText())
	patch.Classification = &label

	wctx, cancel := detachedWrite(ctx)
	defer cancel()
	saved, err := p.proposals.PatchDocument(wctx, proposalID, doc.ID, patch)
	if err != nil {
		log.Error("processor.patch.failed", "error", err)
		return err
	}
	if saved.Category != doc.Category {
		log.Info("processor.category.changed", "from", doc.Category, "to", saved.Category)
	}

	metrics.DocumentsProcessed.WithLabelValues(string(doc.Category), string(out.status)).Inc()
	log.Info("processor.document.done",
		"category", doc.Category,
		"classification", label,
		"method", out.method,
		"status", out.status,
		"text_len", len(out.text),
		"tables", len(out.tables),
		"has_details", details != nil,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out.err
}

// extractText runs the text cascade on the stored file. Unsupported formats
// are skipped, and any other failure yields empty text with no page count.
func (p *Processor) extractText(ctx context.Context, proposalID uuid.UUID, doc entity.Document) textOutcome {
	path := p.files.Path(proposalID, doc.Filename)
	if path == "" {
		return textOutcome{method: constants.MethodNone, status: constants.JobStatusFailed,
			err: fmt.Errorf("invalid stored filename %q", doc.Filename)}
	}

	res, err := p.text.Extract(ctx, path)
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return textOutcome{method: constants.MethodNone, status: constants.JobStatusSkipped}
	case err != nil:
		return textOutcome{method: constants.MethodNone, status: constants.JobStatusFailed, err: err}
	case res.Err != nil:
		return textOutcome{method: constants.MethodNone, status: constants.JobStatusFailed, err: res.Err}
	}

	metrics.ExtractionMethod.WithLabelValues(res.Method).Inc()
	out := textOutcome{method: res.Method, status: constants.JobStatusDone}
	if res.Success {
		out.text = res.Text
		out.tables = res.Tables
		if res.NumPages > 0 {
			out.pages = entity.Ptr(res.NumPages)
		}
	}
	return out
}

// resultPatch turns a pipeline outcome into the document update, applying
// the text retention policy. The patch only lands classification and details
// if the document is still filed under doc.Category, and leaves reviewer-edited
// text alone unless OverwriteEditedText is set.
func (p *Processor) resultPatch(doc entity.Document, out textOutcome, details *entity.ExtractedDetails, keepFull bool) entity.DocumentPatch {
	now := p.now().UTC()
	patch := entity.DocumentPatch{
		ExtractionMethod: entity.Ptr(out.method),
		Status:           entity.Ptr(out.status),
		Error:            entity.Ptr(""),
		ProcessedAt:      &now,
		IfCategory:       entity.Ptr(doc.Category),
		KeepEditedText:   !p.opts.OverwriteEditedText,
	}
	if out.err != nil {
		patch.Error = entity.Ptr(out.err.Error())
	}

	text := out.text
	if !keepFull {
		text = prefix(text, p.opts.TextPrefixLen)
	}
	patch.ExtractedText = &text
	patch.TextEdited = entity.Ptr(false)

	if out.pages != nil {
		patch.Pages = out.pages
	} else {
		patch.ClearPages = true
	}

	if details != nil {
		patch.ExtractedDetails = details
	} else {
		patch.ClearDetails = true
	}
	return patch
}

func (p *Processor) markFailed(ctx context.Context, proposalID uuid.UUID, docID string, cause error) {
	now := p.now().UTC()
	patch := entity.DocumentPatch{
		ExtractedText:  entity.Ptr(""),
		ClearPages:     true,
		Status:         entity.Ptr(constants.JobStatusFailed),
		Error:          entity.Ptr(cause.Error()),
		ProcessedAt:    &now,
		KeepEditedText: !p.opts.OverwriteEditedText,
	}
	_, err := p.proposals.PatchDocument(ctx, proposalID, docID, patch)
	if err != nil {
		p.logger.Error("processor.mark_failed", "proposal_id", proposalID, "document_id", docID, "error", err)
	}
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
