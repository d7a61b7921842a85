package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

func TestAutoCategorize(t *testing.T) {
	tests := []struct {
		filename string
		text     string
		want     constants.Category
	}{
		{"PAN_Card_Ramesh.pdf", "", constants.PersonalID},
		{"GSTR3B_April.pdf", "", constants.Turnover},
		{"company_pan.pdf", "", constants.BusinessID},
		{"gst_certificate.pdf", "", constants.BusinessID},
		{"Aadhaar front.jpg", "", constants.PersonalID},
		{"udyam.pdf", "", constants.BusinessID},
		{"Partnership Deed 2020.pdf", "", constants.Incorporation},
		{"MOA.pdf", "", constants.Incorporation},
		{"CIBIL_score.pdf", "", constants.CreditReports},
		{"ITR_2023.pdf", "", constants.Financials},
		{"Balance Sheet FY24.pdf", "", constants.Financials},
		{"HDFC Bank Statement.pdf", "", constants.Banking},
		{"overdraft.pdf", "", constants.Banking},
		{"gst returns.pdf", "", constants.Turnover},
		{"Existing Loan list.xlsx", "", constants.DebtProfile},
		{"Title Deed.pdf", "", constants.Collateral},
		{"7/12 extract.pdf", "", constants.Collateral},
		{"scan001.pdf", "", constants.Uncategorized},
		{"scan001.pdf", "STATEMENT OF ACCOUNT for period", constants.Banking},
		{"scan002.pdf", "This DEED OF PARTNERSHIP is made", constants.Incorporation},
		{"scan003.pdf", "nothing recognisable here", constants.Uncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoCategorize(tt.filename, tt.text))
		})
	}
}

func partnership() *entity.Proposal {
	return &entity.Proposal{
		ApplicantName: "Sri Balaji Traders",
		ApplicantType: constants.ApplicantPartnership,
		CoApplicants: []entity.CoApplicant{
			{Type: constants.ApplicantIndividual, Name: "Ramesh Kumar"},
			{Type: constants.ApplicantIndividual, Name: "Sunita Devi"},
			{Type: constants.ApplicantIndividual, Name: ""},
			{Type: constants.ApplicantPrivateLimited, Name: "Holding Co"},
		},
	}
}

func TestCandidates(t *testing.T) {
	p := partnership()

	assert.Equal(t, []string{
		"PAN Card of Ramesh Kumar", "Aadhar Card of Ramesh Kumar",
		"PAN Card of Sunita Devi", "Aadhar Card of Sunita Devi",
	}, Candidates(constants.PersonalID, p))

	assert.Equal(t, []string{
		"PAN Card of Sri Balaji Traders (Non Individual)",
		"GST Certificate of Sri Balaji Traders",
		"Labour License of Sri Balaji Traders",
		"UDYAM Certificate of Sri Balaji Traders",
	}, Candidates(constants.BusinessID, p))

	assert.Equal(t, []string{LabelPartnershipDeed, LabelReconstitutedDeed}, Candidates(constants.Incorporation, p))

	assert.Equal(t, []string{
		"Personal Credit Report of Ramesh Kumar",
		"Personal Credit Report of Sunita Devi",
		"Business Credit Report of Sri Balaji Traders",
	}, Candidates(constants.CreditReports, p))

	assert.Len(t, Candidates(constants.Financials, p), 9)
	assert.Equal(t, []string{
		"Bank Statement of Sri Balaji Traders",
		"Overdraft Bank Statement of Sri Balaji Traders",
		"Bank Statement of Ramesh Kumar",
		"Bank Statement of Sunita Devi",
	}, Candidates(constants.Banking, p))
	assert.Empty(t, Candidates(constants.Uncategorized, p))
}

func TestCandidatesIndividualAndCompany(t *testing.T) {
	ind := &entity.Proposal{CustomerName: "Anil", ApplicantType: constants.ApplicantIndividual}
	assert.Equal(t, []string{"PAN Card of Anil", "Aadhar Card of Anil"}, Candidates(constants.PersonalID, ind))
	assert.Empty(t, Candidates(constants.BusinessID, ind))
	assert.Empty(t, Candidates(constants.Incorporation, ind))

	co := &entity.Proposal{ApplicantType: constants.ApplicantPrivateLimited}
	assert.Equal(t, []string{LabelIncorporationCert, LabelMoA, LabelAoA}, Candidates(constants.Incorporation, co))
	assert.Contains(t, Candidates(constants.Banking, co), "Bank Statement of Applicant")
}

func TestMatchRules(t *testing.T) {
	p := partnership()
	tests := []struct {
		name     string
		filename string
		text     string
		cat      constants.Category
		want     string
	}{
		{"pan by filename first name", "sunita_pan.pdf", "", constants.PersonalID, "PAN Card of Sunita Devi"},
		{"pan by full name in text", "scan.pdf", "INCOME TAX DEPARTMENT\nRAMESH KUMAR", constants.PersonalID, "PAN Card of Ramesh Kumar"},
		{"pan without person", "pan.pdf", "", constants.PersonalID, "PAN Card of Ramesh Kumar"},
		{"aadhar by text", "front.jpg", "Unique Identification Authority of India sunita devi", constants.PersonalID, "Aadhar Card of Sunita Devi"},
		{"gst certificate", "gst.pdf", "", constants.BusinessID, "GST Certificate of Sri Balaji Traders"},
		{"udyam", "msme_cert.pdf", "", constants.BusinessID, "UDYAM Certificate of Sri Balaji Traders"},
		{"reconstituted", "deed.pdf", "deed of reconstitution", constants.Incorporation, LabelReconstitutedDeed},
		{"partnership", "partnership.pdf", "", constants.Incorporation, LabelPartnershipDeed},
		{"coi not a candidate", "coi.pdf", "", constants.Incorporation, ""},
		{"gst 3b", "gstr3b_april.pdf", "", constants.Turnover, LabelGST3B},
		{"gst 1", "gstr-1.pdf", "", constants.Turnover, LabelGST1},
		{"debt profile", "anything.xlsx", "", constants.DebtProfile, LabelExistingLoans},
		{"tax receipt", "tax_receipt.pdf", "", constants.Collateral, LabelTaxReceipts},
		{"unregistered", "unregistered title.pdf", "", constants.Collateral, LabelTitleUnregistered},
		{"title", "title.pdf", "", constants.Collateral, LabelTitleDocuments},
		{"banking has no rules", "bank statement.pdf", "", constants.Banking, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchRules(tt.filename, tt.text, tt.cat, Candidates(tt.cat, p))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAnswer(t *testing.T) {
	c := []string{"Bank Statement of Sri Balaji Traders", "Overdraft Bank Statement of Sri Balaji Traders"}
	assert.Equal(t, c[1], MatchAnswer(" Overdraft Bank Statement of Sri Balaji Traders\n", c))
	assert.Equal(t, c[0], MatchAnswer("This is a bank statement of sri balaji", c))
	assert.Equal(t, "", MatchAnswer("UNKNOWN", c))
	assert.Equal(t, "", MatchAnswer("a GST return", c))
}

type fakeAI struct {
	answer string
	err    error
	calls  int
	panic  bool
}

func (f *fakeAI) ClassifyDocument(context.Context, string, string, []string) (string, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.answer, f.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClassifierStrategyChain(t *testing.T) {
	p := partnership()
	long := strings.Repeat("statement line ", 10)

	t.Run("rules win without ai", func(t *testing.T) {
		ai := &fakeAI{answer: "Bank Statement of Ramesh Kumar"}
		got := NewClassifier(ai, quiet()).Classify(context.Background(), "gstr3b.pdf", long, constants.Turnover, p)
		assert.Equal(t, LabelGST3B, got)
		assert.Zero(t, ai.calls)
	})

	t.Run("ai fallback", func(t *testing.T) {
		ai := &fakeAI{answer: "Bank Statement of Ramesh Kumar"}
		got := NewClassifier(ai, quiet()).Classify(context.Background(), "scan.pdf", long, constants.Banking, p)
		assert.Equal(t, "Bank Statement of Ramesh Kumar", got)
		assert.Equal(t, 1, ai.calls)
	})

	t.Run("short text skips ai", func(t *testing.T) {
		ai := &fakeAI{answer: "Bank Statement of Ramesh Kumar"}
		got := NewClassifier(ai, quiet()).Classify(context.Background(), "scan.pdf", "short", constants.Banking, p)
		assert.Equal(t, "", got)
		assert.Zero(t, ai.calls)
	})

	t.Run("ai error is empty", func(t *testing.T) {
		ai := &fakeAI{err: errors.New("rate limited")}
		assert.Equal(t, "", NewClassifier(ai, quiet()).Classify(context.Background(), "scan.pdf", long, constants.Banking, p))
	})

	t.Run("panic is recovered", func(t *testing.T) {
		ai := &fakeAI{panic: true}
		var got string
		require.NotPanics(t, func() {
			got = NewClassifier(ai, quiet()).Classify(context.Background(), "scan.pdf", long, constants.Banking, p)
		})
		assert.Equal(t, "", got)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Equal(t, "", NewClassifier(nil, quiet()).Classify(context.Background(), "x.pdf", long, constants.Uncategorized, p))
	})
}
