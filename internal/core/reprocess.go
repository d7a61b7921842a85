package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// ReprocessResult reports what one document yielded on a reprocess pass.
type ReprocessResult struct {
	DocumentID string                   `json:"documentId"`
	FileName   string                   `json:"fileName"`
	Method     string                   `json:"method"`
	TextLength int                      `json:"textLength"`
	Pages      *int                     `json:"pages"`
	Tables     int                      `json:"tablesFound"`
	Details    *entity.ExtractedDetails `json:"extractedDetails,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

var reprocessable = map[constants.Category]bool{
	constants.Incorporation: true,
	constants.Banking:       true,
	constants.Financials:    true,
	constants.Turnover:      true,
}

// Bank statements are re-read for EMI verification, so a reprocess keeps
// their full text even though the background pass keeps a prefix.
func reprocessKeepsFullText(c constants.Category) bool {
	return c.KeepsFullText() || c == constants.Banking
}

// Reprocess re-runs extraction for every PDF in cat and overwrites text,
// pages and details. Running it twice on unchanged files writes the same
// values. Classification is left alone.
func (p *Processor) Reprocess(ctx context.Context, proposalID uuid.UUID, cat constants.Category) ([]ReprocessResult, error) {
	if !reprocessable[cat] {
		return nil, common.InvalidArgumentErrorf("category %q cannot be reprocessed", cat)
	}
	prop, err := p.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if len(prop.Documents) == 0 {
		return nil, common.InvalidArgumentError("No documents found")
	}

	var docs []entity.Document
	for _, d := range prop.DocumentsIn(cat) {
		if constants.ExtOf(d.OriginalName) == "pdf" || constants.ExtOf(d.Filename) == "pdf" {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 && cat == constants.Turnover {
		return nil, common.InvalidArgumentError("No PDF files found in Turnover category")
	}

	results := make([]ReprocessResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, p.reprocessOne(ctx, prop, d))
	}
	p.logger.Info("reprocess.done", "proposal_id", proposalID, "category", cat, "documents", len(results))
	return results, nil
}

func (p *Processor) reprocessOne(ctx context.Context, prop *entity.Proposal, doc entity.Document) (res ReprocessResult) {
	start := time.Now()
	res = ReprocessResult{DocumentID: doc.ID, FileName: doc.OriginalName}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("reprocess.panic", "proposal_id", prop.ID, "document_id", doc.ID, "panic", r)
			res.Error = "internal error while reprocessing"
		}
	}()

	out := p.extractText(ctx, prop.ID, doc)
	res.Method = out.method
	res.TextLength = len(out.text)
	res.Pages = out.pages
	res.Tables = len(out.tables)
	if out.err != nil {
		res.Error = out.err.Error()
		p.logger.Warn("reprocess.text.failed", "proposal_id", prop.ID, "document_id", doc.ID, "error", out.err)
	}

	var details *entity.ExtractedDetails
	if out.text != "" {
		details = p.extractDetails(ctx, prop, doc.Category, out.text, out.tables)
	}
	res.Details = details

	patch := p.resultPatch(doc, out, details, reprocessKeepsFullText(doc.Category))
	if _, err := p.proposals.PatchDocument(ctx, prop.ID, doc.ID, patch); err != nil {
		res.Error = err.Error()
		p.logger.Error("reprocess.patch.failed", "proposal_id", prop.ID, "document_id", doc.ID, "error", err)
		return res
	}
	p.logger.Info("reprocess.document.done",
		"proposal_id", prop.ID,
		"document_id", doc.ID,
		"category", doc.Category,
		"method", out.method,
		"text_len", res.TextLength,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res
}
