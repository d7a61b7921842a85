package debtprofile

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
	"github.com/joseph-ayodele/loan-intake/internal/storage"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseWorkbook_TenureProgress(t *testing.T) {
	buf := workbook(t,
		[]any{"Bank", "EMI Start Date", "Tenure"},
		[]any{"HDFC Bank", "15/06/2022", 60},
	)
	rows, err := ParseWorkbook(buf, uuid.New(), fixedNow)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "HDFC Bank", r.Bank)
	assert.Equal(t, 1, r.SNo)
	require.NotNil(t, r.Tenure)
	assert.Equal(t, 60, *r.Tenure)
	assert.Equal(t, 24, r.MonthsCompleted)
	assert.Equal(t, 40, r.PercentTenureCompleted)
	assert.Equal(t, "15/06/2022", r.EMIStartDate)
	assert.Equal(t, "15/06/2027", r.EMIEndDate)
	assert.Nil(t, r.EMI)
	assert.Nil(t, r.LoanAmount)
}

func TestParseWorkbook_HeaderDetectionAndAliases(t *testing.T) {
	pid := uuid.New()
	buf := workbook(t,
		[]any{"Debt profile of Sri Lakshmi Traders"},
		[]any{},
		[]any{"S.No", "Borrower", "Lender", "Product", "Sanctioned Amount", "Monthly EMI", "Rate of Interest", "Date of Sanction", "Loan Tenure", "EMI Start"},
		[]any{1, "Ravi Kumar", "SBI", "Term Loan", "₹ 5,00,000", "12,500", "9.5%", "01-01-2021", "36 months", time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC)},
		[]any{},
		[]any{7, "Ravi Kumar", "", "Vehicle", "", "", "", "", "", ""},
		[]any{"", "", "", "", "", "4,200", "", "", "", ""},
	)
	rows, err := ParseWorkbook(buf, pid, fixedNow)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, pid, r.ProposalID)
	assert.Equal(t, 1, r.SNo)
	assert.Equal(t, "Ravi Kumar", r.LoanApplicant)
	assert.Equal(t, "SBI", r.Bank)
	assert.Equal(t, "Term Loan", r.LoanType)
	require.NotNil(t, r.LoanAmount)
	assert.Equal(t, 500000.0, *r.LoanAmount)
	require.NotNil(t, r.EMI)
	assert.Equal(t, 12500.0, *r.EMI)
	require.NotNil(t, r.ROI)
	assert.Equal(t, 9.5, *r.ROI)
	assert.Equal(t, "01/01/2021", r.SanctionDate)
	assert.Equal(t, "10/02/2021", r.EMIStartDate)
	assert.Equal(t, "10/02/2024", r.EMIEndDate)
	assert.Equal(t, 40, r.MonthsCompleted)
	assert.Equal(t, 100, r.PercentTenureCompleted)

	// the row with only an EMI value is kept and numbered by position
	assert.Equal(t, 2, rows[1].SNo)
	require.NotNil(t, rows[1].EMI)
	assert.Equal(t, 4200.0, *rows[1].EMI)
}

func TestParseWorkbook_NotAWorkbook(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewBufferString("not a zip"), uuid.New(), fixedNow)
	assert.Error(t, err)
}

func TestRowValue(t *testing.T) {
	r := newRow(
		[]string{"Bank Name", " loan amount ", "EMI Start Date", "Applicant Name", ""},
		[]string{"ICICI", "1000", "01/01/2020", "Meena", "ignored"},
	)
	assert.Equal(t, "ICICI", r.value(colBank...))
	assert.Equal(t, "1000", r.value(colLoanAmount...))
	assert.Equal(t, "01/01/2020", r.value(colEMIStart...))
	assert.Equal(t, "Meena", r.value(colApplicant...))
	assert.Empty(t, r.value(colEMI...), "EMI must not borrow the EMI Start Date column")
	assert.Len(t, r, 4)
}

func TestFindHeaderRow(t *testing.T) {
	assert.Equal(t, 2, findHeaderRow([][]string{{"Title"}, {}, {"Sr.No", "Bank", "EMI"}}))
	assert.Equal(t, -1, findHeaderRow([][]string{{"Bank", "Amount"}}))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"15/06/2022", "15/06/2022", true},
		{"5-6-2022", "05/06/2022", true},
		{"05.06.22", "05/06/2022", true},
		{"2022-06-05", "05/06/2022", true},
		{"44722", "10/06/2022", true},
		{"", "", false},
		{"June 2022", "", false},
		{"45/13/2022", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format(dateLayout))
			}
		})
	}
	assert.Equal(t, "June 2022", formatDate(" June 2022 "))
}

func TestTenureProgress(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		tenure     *int
		months     int
		percentage int
	}{
		{"mid tenure", "15/06/2022", entity.Ptr(60), 24, 40},
		{"completed caps at 100", "01/01/2010", entity.Ptr(12), 173, 100},
		{"future start", "01/01/2030", entity.Ptr(12), 0, 0},
		{"no tenure", "01/01/2020", nil, 0, 0},
		{"zero tenure", "01/01/2020", entity.Ptr(0), 0, 0},
		{"bad start", "soon", entity.Ptr(12), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, p := TenureProgress(tt.start, tt.tenure, fixedNow)
			assert.Equal(t, tt.months, m)
			assert.Equal(t, tt.percentage, p)
		})
	}
}

func TestLeadingIntAndAmount(t *testing.T) {
	assert.Equal(t, 60, *leadingInt("60 months"))
	assert.Equal(t, 36, *leadingInt(" 36.0"))
	assert.Nil(t, leadingInt("sixty"))
	assert.Equal(t, 250000.5, *parseAmount("₹ 2,50,000.50"))
	assert.Nil(t, parseAmount("nil"))
}

type serviceFixture struct {
	svc       *Service
	proposals repository.ProposalRepository
	store     *storage.LocalStore
	proposal  *entity.Proposal
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close(nil) })

	store, err := storage.NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	proposals := repository.NewProposalRepository(db, nil)
	p, err := proposals.Create(ctx, &entity.Proposal{ApplicantName: "Sri Lakshmi Traders", ApplicantType: constants.ApplicantPartnership})
	require.NoError(t, err)

	svc := NewService(proposals, repository.NewDebtProfileRepository(db, nil), store, nil)
	svc.now = func() time.Time { return fixedNow }
	return serviceFixture{svc: svc, proposals: proposals, store: store, proposal: p}
}

func (f serviceFixture) upload(t *testing.T, name string, cat constants.Category, body *bytes.Buffer) {
	t.Helper()
	saved, err := f.store.Save(f.proposal.ID, name, body)
	require.NoError(t, err)
	_, err = f.proposals.AddDocuments(context.Background(), f.proposal.ID, []entity.Document{{
		Filename:     saved.Filename,
		OriginalName: name,
		Size:         saved.Size,
		Category:     cat,
	}})
	require.NoError(t, err)
}

func TestService_ExtractForProposal(t *testing.T) {
	ctx := context.Background()

	t.Run("no spreadsheets", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.ExtractForProposal(ctx, f.proposal.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Contains(t, err.Error(), "No Excel files found in Debt Profile category")
	})

	t.Run("spreadsheet without rows", func(t *testing.T) {
		f := newServiceFixture(t)
		f.upload(t, "debt.xlsx", constants.DebtProfile, workbook(t, []any{"Bank", "EMI", "Tenure"}))
		_, err := f.svc.ExtractForProposal(ctx, f.proposal.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No data could be extracted from Excel files")
	})

	t.Run("replaces previous rows", func(t *testing.T) {
		f := newServiceFixture(t)
		f.upload(t, "debt.xlsx", constants.DebtProfile, workbook(t,
			[]any{"Bank", "EMI Start Date", "Tenure"},
			[]any{"HDFC Bank", "15/06/2022", 60},
			[]any{"Axis Bank", "15/06/2023", 12},
		))
		f.upload(t, "other.xlsx", constants.Financials, workbook(t,
			[]any{"Bank", "EMI", "Tenure"},
			[]any{"Ignored", 1, 1},
		))

		rows, err := f.svc.ExtractForProposal(ctx, f.proposal.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		rows, err = f.svc.ExtractForProposal(ctx, f.proposal.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		stored, err := f.svc.List(ctx, f.proposal.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "HDFC Bank", stored[0].Bank)
		assert.Equal(t, 100, stored[1].PercentTenureCompleted)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.upload(t, "debt.xlsx", constants.DebtProfile, workbook(t,
		[]any{"Bank", "EMI Start Date", "Tenure"},
		[]any{"HDFC Bank", "15/06/2022", 60},
	))
	rows, err := f.svc.ExtractForProposal(ctx, f.proposal.ID)
	require.NoError(t, err)
	id := rows[0].ID

	got, err := f.svc.Update(ctx, id, entity.DebtProfilePatch{
		Tenure:                   entity.Ptr(48),
		EMIBankStatementProvided: entity.Ptr(true),
		EMIBankAccountNumber:     entity.Ptr("50100234567890"),
	})
	require.NoError(t, err)
	assert.Equal(t, 24, got.MonthsCompleted)
	assert.Equal(t, 50, got.PercentTenureCompleted)
	assert.True(t, got.EMIBankStatementProvided)
	assert.Equal(t, "HDFC Bank", got.Bank)

	_, err = f.svc.Update(ctx, id, entity.DebtProfilePatch{EMI: entity.Ptr(-1.0)})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.Update(ctx, id, entity.DebtProfilePatch{EMIStartDate: entity.Ptr("June")})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, f.svc.Delete(ctx, id))
	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
