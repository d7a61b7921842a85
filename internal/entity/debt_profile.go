package entity

import (
	"time"

	"github.com/google/uuid"
)

// DebtProfile is one existing loan of the applicant group. Rows are owned by a
// proposal and replaced wholesale on every import.
type DebtProfile struct {
	ID                       uuid.UUID `json:"id"`
	ProposalID               uuid.UUID `json:"proposalId"`
	SNo                      int       `json:"sNo"`
	LoanApplicant            string    `json:"loanApplicant"`
	Bank                     string    `json:"bank"`
	LoanType                 string    `json:"loanType"`
	LoanAmount               *float64  `json:"loanAmount"`
	EMI                      *float64  `json:"emi"`
	ROI                      *float64  `json:"roi"`
	SanctionDate             string    `json:"sanctionDate"`
	Tenure                   *int      `json:"tenure"`
	EMIStartDate             string    `json:"emiStartDate"`
	EMIEndDate               string    `json:"emiEndDate"`
	MonthsCompleted          int       `json:"monthsCompleted"`
	PercentTenureCompleted   int       `json:"percentTenureCompleted"`
	CurrentOutstanding       *float64  `json:"currentOutstanding"`
	EMIBankStatementProvided bool      `json:"emiBankStatementProvided"`
	EMIBankAccountNumber     string    `json:"emiBankAccountNumber"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// DebtProfilePatch is a partial update of a debt profile row.
type DebtProfilePatch struct {
	LoanApplicant            *string  `json:"loanApplicant"`
	Bank                     *string  `json:"bank"`
	LoanType                 *string  `json:"loanType"`
	LoanAmount               *float64 `json:"loanAmount"`
	EMI                      *float64 `json:"emi"`
	ROI                      *float64 `json:"roi"`
	SanctionDate             *string  `json:"sanctionDate"`
	Tenure                   *int     `json:"tenure"`
	EMIStartDate             *string  `json:"emiStartDate"`
	EMIEndDate               *string  `json:"emiEndDate"`
	CurrentOutstanding       *float64 `json:"currentOutstanding"`
	EMIBankStatementProvided *bool    `json:"emiBankStatementProvided"`
	EMIBankAccountNumber     *string  `json:"emiBankAccountNumber"`
}

// Apply merges p into d.
func (p DebtProfilePatch) Apply(d *DebtProfile) {
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setStr(&d.LoanApplicant, p.LoanApplicant)
	setStr(&d.Bank, p.Bank)
	setStr(&d.LoanType, p.LoanType)
	setStr(&d.SanctionDate, p.SanctionDate)
	setStr(&d.EMIStartDate, p.EMIStartDate)
	setStr(&d.EMIEndDate, p.EMIEndDate)
	setStr(&d.EMIBankAccountNumber, p.EMIBankAccountNumber)
	if p.LoanAmount != nil {
		d.LoanAmount = Ptr(*p.LoanAmount)
	}
	if p.EMI != nil {
		d.EMI = Ptr(*p.EMI)
	}
	if p.ROI != nil {
		d.ROI = Ptr(*p.ROI)
	}
	if p.Tenure != nil {
		d.Tenure = Ptr(*p.Tenure)
	}
	if p.CurrentOutstanding != nil {
		d.CurrentOutstanding = Ptr(*p.CurrentOutstanding)
	}
	if p.EMIBankStatementProvided != nil {
		d.EMIBankStatementProvided = *p.EMIBankStatementProvided
	}
}
