package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DetailsKind tags which payload an ExtractedDetails carries.
type DetailsKind string

const (
	DetailsPartnershipDeed     DetailsKind = "partnership-deed"
	DetailsCompany             DetailsKind = "company-incorporation"
	DetailsBankStatement       DetailsKind = "bank-statement"
	DetailsFinancialComponents DetailsKind = "financial-components"
)

// NotAvailable is the placeholder for bank statement fields that were not found.
const NotAvailable = "N/A"

// ExtractedDetails is the category specific fact set recovered from a document.
// Exactly one payload pointer is set, matching Kind.
type ExtractedDetails struct {
	Kind          DetailsKind           `json:"kind"`
	Source        string                `json:"source"`
	Partnership   *PartnershipDetails   `json:"partnership,omitempty"`
	Company       *CompanyDetails       `json:"company,omitempty"`
	BankStatement *BankStatementDetails `json:"bankStatement,omitempty"`
	Financial     *FinancialComponents  `json:"financialComponents,omitempty"`
}

func NewPartnershipDetails(d PartnershipDetails, source string) *ExtractedDetails {
	return &ExtractedDetails{Kind: DetailsPartnershipDeed, Source: source, Partnership: &d}
}

func NewCompanyDetails(d CompanyDetails, source string) *ExtractedDetails {
	return &ExtractedDetails{Kind: DetailsCompany, Source: source, Company: &d}
}

func NewBankStatementDetails(d BankStatementDetails, source string) *ExtractedDetails {
	return &ExtractedDetails{Kind: DetailsBankStatement, Source: source, BankStatement: &d}
}

func NewFinancialDetails(d FinancialComponents, source string) *ExtractedDetails {
	return &ExtractedDetails{Kind: DetailsFinancialComponents, Source: source, Financial: &d}
}

// PartnershipDetails are the facts recovered from a partnership deed.
type PartnershipDetails struct {
	DeedDate *string   `json:"deedDate"`
	Partners []Partner `json:"partners"`
}

func (d PartnershipDetails) IsEmpty() bool {
	return d.DeedDate == nil && len(d.Partners) == 0
}

type Partner struct {
	Name          string  `json:"name"`
	ProfitPercent Percent `json:"profitPercent"`
	LossPercent   Percent `json:"lossPercent"`
}

// Percent is either a number or a textual marker such as "Not specified".
type Percent struct {
	value float64
	note  string
	isNum bool
}

const PercentNotSpecified = "Not specified"

func PercentOf(v float64) Percent { return Percent{value: v, isNum: true} }

func PercentNote(note string) Percent { return Percent{note: note} }

// Value returns the numeric percentage, if there is one.
func (p Percent) Value() (float64, bool) { return p.value, p.isNum }

func (p Percent) String() string {
	if p.isNum {
		return strconv.FormatFloat(p.value, 'f', -1, 64)
	}
	if p.note == "" {
		return PercentNotSpecified
	}
	return p.note
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if p.isNum {
		return json.Marshal(p.value)
	}
	return json.Marshal(p.String())
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = PercentNote(PercentNotSpecified)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*p = PercentOf(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("percent: %w", err)
	}
	*p = PercentNote(s)
	return nil
}

// CompanyDetails are the facts recovered from company incorporation papers.
type CompanyDetails struct {
	CompanyName  string        `json:"companyName"`
	Shareholders []Shareholder `json:"shareholders"`
	Directors    []Director    `json:"directors"`
}

type Shareholder struct {
	Name       string   `json:"name"`
	Shares     string   `json:"shares"`
	Percentage *float64 `json:"percentage"`
}

type Director struct {
	Name        string `json:"name"`
	DIN         string `json:"din"`
	Designation string `json:"designation"`
}

// BankStatementDetails uses NotAvailable for fields that were not found.
type BankStatementDetails struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber"`
	PeriodFrom    string `json:"periodFrom"`
	PeriodTo      string `json:"periodTo"`
	Period        string `json:"period"`
}

// EmptyBankStatement returns details with every field set to NotAvailable.
func EmptyBankStatement() BankStatementDetails {
	return BankStatementDetails{
		BankName:      NotAvailable,
		AccountHolder: NotAvailable,
		AccountNumber: NotAvailable,
		PeriodFrom:    NotAvailable,
		PeriodTo:      NotAvailable,
		Period:        NotAvailable,
	}
}

// IsEmpty is true when nothing beyond placeholders was recovered.
func (d BankStatementDetails) IsEmpty() bool {
	for _, v := range []string{d.BankName, d.AccountHolder, d.AccountNumber, d.PeriodFrom, d.PeriodTo} {
		if v != "" && v != NotAvailable {
			return false
		}
	}
	return true
}

// FinancialComponents flags which parts of an ITR filing set a document contains.
type FinancialComponents struct {
	ITRAck       bool `json:"itrAck"`
	Computation  bool `json:"computation"`
	BalanceSheet bool `json:"balanceSheet"`
	ProfitLoss   bool `json:"profitLoss"`
}
