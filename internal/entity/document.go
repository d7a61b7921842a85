package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// Document represents one uploaded file attached to a proposal.
type Document struct {
	ID               string              `json:"id"`
	ProposalID       uuid.UUID           `json:"proposalId"`
	Filename         string              `json:"filename"`
	OriginalName     string              `json:"originalName"`
	MimeType         string              `json:"mimeType"`
	Size             int64               `json:"size"`
	ContentHash      string              `json:"contentHash,omitempty"`
	Category         constants.Category  `json:"category"`
	Classification   string              `json:"classification"`
	AutoCategorized  bool                `json:"autoCategorized"`
	ExtractedText    string              `json:"extractedText"`
	TextEdited       bool                `json:"textEdited"`
	Pages            *int                `json:"pages"`
	ExtractedDetails *ExtractedDetails   `json:"extractedDetails"`
	ExtractionMethod string              `json:"extractionMethod,omitempty"`
	Status           constants.JobStatus `json:"status"`
	Error            string              `json:"error,omitempty"`
	UploadedAt       time.Time           `json:"uploadedAt"`
	ProcessedAt      *time.Time          `json:"processedAt,omitempty"`
}

// DocumentPatch is a targeted update of one document. Nil fields are left untouched.
type DocumentPatch struct {
	Category         *constants.Category
	Classification   *string
	ExtractedText    *string
	TextEdited       *bool
	Pages            *int
	ClearPages       bool
	ExtractedDetails *ExtractedDetails
	ClearDetails     bool
	ExtractionMethod *string
	Status           *constants.JobStatus
	Error            *string
	ProcessedAt      *time.Time

	// IfCategory, when set, drops Classification and the details fields
	// unless the stored category still matches.
	IfCategory *constants.Category
	// KeepEditedText drops ExtractedText and TextEdited when the stored
	// text was edited by a reviewer.
	KeepEditedText bool
}

// IsEmpty reports whether applying the patch would change nothing. Guards
// alone change nothing.
func (p DocumentPatch) IsEmpty() bool {
	return p.Category == nil && p.Classification == nil && p.ExtractedText == nil &&
		p.TextEdited == nil && p.Pages == nil && !p.ClearPages &&
		p.ExtractedDetails == nil && !p.ClearDetails && p.ExtractionMethod == nil &&
		p.Status == nil && p.Error == nil && p.ProcessedAt == nil
}

// ApplyPatch merges p into d. Setting a category always resets the
// classification; a classification carried by the same patch is applied after.
// Guards are checked against d before anything is merged.
func (d *Document) ApplyPatch(p DocumentPatch) {
	if p.IfCategory != nil && d.Category != *p.IfCategory {
		p.Classification = nil
		p.ExtractedDetails, p.ClearDetails = nil, false
	}
	if p.KeepEditedText && d.TextEdited {
		p.ExtractedText, p.TextEdited = nil, nil
	}
	if p.Category != nil {
		d.Category = *p.Category
		d.Classification = ""
	}
	if p.Classification != nil {
		d.Classification = *p.Classification
	}
	if p.ExtractedText != nil {
		d.ExtractedText = *p.ExtractedText
	}
	if p.TextEdited != nil {
		d.TextEdited = *p.TextEdited
	}
	switch {
	case p.ClearPages:
		d.Pages = nil
	case p.Pages != nil:
		n := *p.Pages
		d.Pages = &n
	}
	switch {
	case p.ClearDetails:
		d.ExtractedDetails = nil
	case p.ExtractedDetails != nil:
		d.ExtractedDetails = p.ExtractedDetails
	}
	if p.ExtractionMethod != nil {
		d.ExtractionMethod = *p.ExtractionMethod
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Error != nil {
		d.Error = *p.Error
	}
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		d.ProcessedAt = &t
	}
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
