package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// Proposal represents a loan application and the documents uploaded against it.
type Proposal struct {
	ID            uuid.UUID               `json:"id"`
	ApplicantName string                  `json:"applicantName"`
	CustomerName  string                  `json:"customerName,omitempty"`
	ApplicantType constants.ApplicantType `json:"applicantType"`
	CoApplicants  []CoApplicant           `json:"coApplicants"`
	Documents     []Document              `json:"documents"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// CoApplicant is a guarantor or co-borrower listed on the proposal.
type CoApplicant struct {
	Type constants.ApplicantType `json:"type"`
	Name string                  `json:"name"`
}

// DisplayName is the name used in generated document labels.
func (p *Proposal) DisplayName() string {
	if n := strings.TrimSpace(p.ApplicantName); n != "" {
		return n
	}
	if n := strings.TrimSpace(p.CustomerName); n != "" {
		return n
	}
	return "Applicant"
}

// IndividualCoApplicants returns named co-applicants of type Individual.
func (p *Proposal) IndividualCoApplicants() []CoApplicant {
	var out []CoApplicant
	for _, c := range p.CoApplicants {
		if c.Type == constants.ApplicantIndividual && strings.TrimSpace(c.Name) != "" {
			out = append(out, c)
		}
	}
	return out
}

// FindDocument looks a document up by id or stored filename.
func (p *Proposal) FindDocument(ref string) (*Document, bool) {
	for i := range p.Documents {
		if p.Documents[i].ID == ref || p.Documents[i].Filename == ref {
			return &p.Documents[i], true
		}
	}
	return nil, false
}

// HasOriginalName reports whether a document with the given user-supplied name exists.
func (p *Proposal) HasOriginalName(name string) bool {
	for _, d := range p.Documents {
		if d.OriginalName == name {
			return true
		}
	}
	return false
}

// DocumentsIn returns the documents filed under a category.
func (p *Proposal) DocumentsIn(cat constants.Category) []Document {
	var out []Document
	for _, d := range p.Documents {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}
