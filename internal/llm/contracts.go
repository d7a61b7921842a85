package llm

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// DocumentResult is the outcome of one Document AI extraction.
type DocumentResult struct {
	Success bool
	Target  TargetKind
	// Data is *PartnershipDeedData or *BankStatementData, matching Target.
	Data   any
	Raw    json.RawMessage
	Method string
	Error  string
	Err    error
}

func (r DocumentResult) PartnershipDeed() (*PartnershipDeedData, bool) {
	d, ok := r.Data.(*PartnershipDeedData)
	return d, ok && r.Success
}

func (r DocumentResult) BankStatement() (*BankStatementData, bool) {
	d, ok := r.Data.(*BankStatementData)
	return d, ok && r.Success
}

// ImageTextResult is the outcome of one vision OCR call.
type ImageTextResult struct {
	Success   bool
	Text      string
	Method    string
	CharCount int
	Error     string
	Err       error
}

// DocumentExtractor pulls a target's structured facts out of recovered text.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, target Target, text string, tables []entity.ExtractedTable) DocumentResult
}

// ImageTextExtractor recovers the text of an image file.
type ImageTextExtractor interface {
	ExtractImageText(ctx context.Context, path string) ImageTextResult
}

// DocumentClassifier asks the model to pick one label from candidates. The
// answer is returned raw; matching it against candidates is the caller's job.
type DocumentClassifier interface {
	ClassifyDocument(ctx context.Context, filename, text string, candidates []string) (string, error)
}
