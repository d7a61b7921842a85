package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

const (
	documentsSheet   = "Documents"
	debtProfileSheet = "Debt Profile"
)

// Service produces XLSX bytes for a proposal.
type Service struct {
	proposals repository.ProposalRepository
	profiles  repository.DebtProfileRepository
	logger    *slog.Logger
}

func NewService(proposals repository.ProposalRepository, profiles repository.DebtProfileRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{proposals: proposals, profiles: profiles, logger: logger}
}

// ExportProposalXLSX returns a workbook with one row per document and one
// row per debt profile entry.
func (s *Service) ExportProposalXLSX(ctx context.Context, proposalID uuid.UUID) ([]byte, error) {
	start := time.Now()

	prop, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	debts, err := s.profiles.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("query debt profiles: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(debtProfileSheet); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	writeDocuments(f, prop.Documents)
	writeDebtProfile(f, debts)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"proposal_id", proposalID.String(),
		"documents", len(prop.Documents),
		"debt_rows", len(debts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func writeDocuments(f *excelize.File, docs []entity.Document) {
	writeRow(f, documentsSheet, 1,
		"Category", "Classification", "File Name", "Status", "Extraction Method", "Pages", "Details", "Uploaded At")
	for i, d := range docs {
		var pages any = ""
		if d.Pages != nil {
			pages = *d.Pages
		}
		writeRow(f, documentsSheet, i+2,
			string(d.Category),
			d.Classification,
			d.OriginalName,
			string(d.Status),
			d.ExtractionMethod,
			pages,
			truncate(summarize(d.ExtractedDetails), 250),
			d.UploadedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	_ = f.SetColWidth(documentsSheet, "A", "B", 24)
	_ = f.SetColWidth(documentsSheet, "C", "C", 40)
	_ = f.SetColWidth(documentsSheet, "D", "F", 14)
	_ = f.SetColWidth(documentsSheet, "G", "G", 60)
	_ = f.SetColWidth(documentsSheet, "H", "H", 18)
}

func writeDebtProfile(f *excelize.File, rows []entity.DebtProfile) {
	writeRow(f, debtProfileSheet, 1,
		"S.No", "Loan Applicant", "Bank", "Loan Type", "Loan Amount", "EMI", "ROI",
		"Sanction Date", "Tenure", "EMI Start Date", "EMI End Date",
		"Months Completed", "% Tenure Completed", "Current Outstanding",
		"EMI Bank Statement Provided", "EMI Bank Account Number")
	for i, d := range rows {
		provided := "No"
		if d.EMIBankStatementProvided {
			provided = "Yes"
		}
		writeRow(f, debtProfileSheet, i+2,
			d.SNo, d.LoanApplicant, d.Bank, d.LoanType,
			orBlank(d.LoanAmount), orBlank(d.EMI), orBlank(d.ROI),
			d.SanctionDate, orBlank(d.Tenure), d.EMIStartDate, d.EMIEndDate,
			d.MonthsCompleted, d.PercentTenureCompleted, orBlank(d.CurrentOutstanding),
			provided, d.EMIBankAccountNumber,
		)
	}
	_ = f.SetColWidth(debtProfileSheet, "B", "D", 22)
	_ = f.SetColWidth(debtProfileSheet, "E", "N", 14)
	_ = f.SetColWidth(debtProfileSheet, "O", "P", 24)
}

func orBlank[T int | float64](v *T) any {
	if v == nil {
		return ""
	}
	return *v
}

// summarize renders extracted details as one line for the sheet.
func summarize(d *entity.ExtractedDetails) string {
	if d == nil {
		return ""
	}
	switch {
	case d.Partnership != nil:
		parts := make([]string, 0, len(d.Partnership.Partners))
		for _, p := range d.Partnership.Partners {
			parts = append(parts, fmt.Sprintf("%s (%s%%)", p.Name, p.ProfitPercent))
		}
		date := "date unknown"
		if d.Partnership.DeedDate != nil {
			date = *d.Partnership.DeedDate
		}
		return fmt.Sprintf("Deed %s: %s", date, strings.Join(parts, ", "))
	case d.Company != nil:
		names := make([]string, 0, len(d.Company.Directors))
		for _, dir := range d.Company.Directors {
			names = append(names, dir.Name)
		}
		return fmt.Sprintf("%s; directors: %s", d.Company.CompanyName, strings.Join(names, ", "))
	case d.BankStatement != nil:
		b := d.BankStatement
		return fmt.Sprintf("%s %s (%s), %s", b.BankName, b.AccountNumber, b.AccountHolder, b.Period)
	case d.Financial != nil:
		var have []string
		for _, c := range []struct {
			ok   bool
			name string
		}{
			{d.Financial.ITRAck, "ITR acknowledgement"},
			{d.Financial.Computation, "computation"},
			{d.Financial.BalanceSheet, "balance sheet"},
			{d.Financial.ProfitLoss, "P&L"},
		} {
			if c.ok {
				have = append(have, c.name)
			}
		}
		return strings.Join(have, ", ")
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
