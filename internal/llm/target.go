package llm

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// TargetKind names a Document AI extraction target.
type TargetKind string

const (
	TargetPartnershipDeed TargetKind = "partnership-deed"
	TargetBankStatement   TargetKind = "bank-statement"
)

// Target is a closed set of extraction targets. Each variant owns its prompt,
// response schema and decoder, so a new target cannot exist without them.
type Target interface {
	Kind() TargetKind
	Prompt(text string, tables []entity.ExtractedTable) string
	Schema() map[string]any
	MaxTokens() int
	Decode(raw []byte) (any, error)
	// Usable reports whether decoded data carries any fact worth keeping.
	Usable(data any) bool
	isTarget()
}

// TargetFor resolves a kind to its target.
func TargetFor(kind TargetKind) (Target, error) {
	switch kind {
	case TargetPartnershipDeed:
		return PartnershipDeedTarget{}, nil
	case TargetBankStatement:
		return BankStatementTarget{}, nil
	default:
		return nil, fmt.Errorf("unknown extraction target %q", kind)
	}
}

// PartnershipDeedData is the model's view of a partnership deed.
type PartnershipDeedData struct {
	DateOfExecution *string     `json:"dateOfExecution"`
	Partners        []DeedShare `json:"partners"`
}

type DeedShare struct {
	Name             string   `json:"name"`
	ProfitPercentage *float64 `json:"profitPercentage"`
	LossPercentage   *float64 `json:"lossPercentage"`
}

// BankStatementData is the model's view of a bank statement header.
type BankStatementData struct {
	BankName      *string `json:"bankName"`
	AccountHolder *string `json:"accountHolder"`
	AccountNumber *string `json:"accountNumber"`
	PeriodFrom    *string `json:"periodFrom"`
	PeriodTo      *string `json:"periodTo"`
}

type PartnershipDeedTarget struct{}

func (PartnershipDeedTarget) Kind() TargetKind { return TargetPartnershipDeed }
func (PartnershipDeedTarget) MaxTokens() int   { return 1000 }
func (PartnershipDeedTarget) isTarget()        {}

func (PartnershipDeedTarget) Prompt(text string, tables []entity.ExtractedTable) string {
	return partnershipDeedPrompt(text, tables)
}

func (PartnershipDeedTarget) Schema() map[string]any { return partnershipDeedSchema() }

func (PartnershipDeedTarget) Decode(raw []byte) (any, error) {
	var d PartnershipDeedData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode partnership deed: %w", err)
	}
	return &d, nil
}

func (PartnershipDeedTarget) Usable(data any) bool {
	d, ok := data.(*PartnershipDeedData)
	return ok && d != nil && (d.DateOfExecution != nil || len(d.Partners) > 0)
}

type BankStatementTarget struct{}

func (BankStatementTarget) Kind() TargetKind { return TargetBankStatement }
func (BankStatementTarget) MaxTokens() int   { return 1000 }
func (BankStatementTarget) isTarget()        {}

func (BankStatementTarget) Prompt(text string, tables []entity.ExtractedTable) string {
	return bankStatementPrompt(text, tables)
}

func (BankStatementTarget) Schema() map[string]any { return bankStatementSchema() }

func (BankStatementTarget) Decode(raw []byte) (any, error) {
	var d BankStatementData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode bank statement: %w", err)
	}
	return &d, nil
}

func (BankStatementTarget) Usable(data any) bool {
	d, ok := data.(*BankStatementData)
	if !ok || d == nil {
		return false
	}
	for _, v := range []*string{d.BankName, d.AccountHolder, d.AccountNumber, d.PeriodFrom, d.PeriodTo} {
		if v != nil {
			return true
		}
	}
	return false
}
