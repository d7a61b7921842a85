package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

func TestExportProposalXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close(nil) })

	proposals := repository.NewProposalRepository(db, nil)
	profiles := repository.NewDebtProfileRepository(db, nil)

	prop, err := proposals.Create(ctx, &entity.Proposal{ApplicantName: "Sri Lakshmi Traders", ApplicantType: constants.ApplicantPartnership})
	require.NoError(t, err)
	docs, err := proposals.AddDocuments(ctx, prop.ID, []entity.Document{{
		Filename:     "documents-1-1.pdf",
		OriginalName: "bank statement.pdf",
		Category:     constants.Banking,
	}})
	require.NoError(t, err)
	bank := entity.EmptyBankStatement()
	bank.BankName = "HDFC Bank"
	_, err = proposals.PatchDocument(ctx, prop.ID, docs[0].ID, entity.DocumentPatch{
		Classification:   entity.Ptr("HDFC Current Account"),
		Pages:            entity.Ptr(4),
		ExtractedDetails: entity.NewBankStatementDetails(bank, constants.MethodRegex),
		Status:           entity.Ptr(constants.JobStatusDone),
	})
	require.NoError(t, err)

	amount := 500000.0
	_, err = profiles.ReplaceForProposal(ctx, prop.ID, []entity.DebtProfile{{
		SNo: 1, LoanApplicant: "Ravi Kumar", Bank: "SBI", LoanType: "Term Loan", LoanAmount: &amount,
		EMIStartDate: "15/06/2022", MonthsCompleted: 24, PercentTenureCompleted: 40,
	}})
	require.NoError(t, err)

	out, err := NewService(proposals, profiles, nil).ExportProposalXLSX(ctx, prop.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{documentsSheet, debtProfileSheet}, f.GetSheetList())

	rows, err := f.GetRows(documentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Category", rows[0][0])
	assert.Equal(t, "banking", rows[1][0])
	assert.Equal(t, "HDFC Current Account", rows[1][1])
	assert.Equal(t, "bank statement.pdf", rows[1][2])
	assert.Equal(t, "DONE", rows[1][3])
	assert.Equal(t, "4", rows[1][5])
	assert.Contains(t, rows[1][6], "HDFC Bank")

	rows, err = f.GetRows(debtProfileSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S.No", rows[0][0])
	assert.Equal(t, "Ravi Kumar", rows[1][1])
	assert.Equal(t, "500000", rows[1][4])
	assert.Equal(t, "", rows[1][5])
	assert.Equal(t, "24", rows[1][11])
	assert.Equal(t, "40", rows[1][12])
	assert.Equal(t, "No", rows[1][14])

	_, err = NewService(proposals, profiles, nil).ExportProposalXLSX(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSummarize(t *testing.T) {
	date := "01/04/2019"
	deed := entity.NewPartnershipDetails(entity.PartnershipDetails{
		DeedDate: &date,
		Partners: []entity.Partner{{Name: "Ravi", ProfitPercent: entity.PercentOf(60)}},
	}, constants.MethodRegex)
	assert.Equal(t, "Deed 01/04/2019: Ravi (60%)", summarize(deed))

	fin := entity.NewFinancialDetails(entity.FinancialComponents{ITRAck: true, ProfitLoss: true}, constants.MethodRegex)
	assert.Equal(t, "ITR acknowledgement, P&L", summarize(fin))
	assert.Empty(t, summarize(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
