package classify

import (
	"fmt"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// Candidate labels that do not depend on the proposal.
const (
	LabelPartnershipDeed   = "Partnership deed - Date of deed, Profit & Loss share of partners"
	LabelReconstitutedDeed = "Reconstituted partnership deed - Date of deed, Profit & Loss share of partners"
	LabelIncorporationCert = "Certificate of Incorporation"
	LabelMoA               = "Memorandum of Association"
	LabelAoA               = "Articles of Association"
	LabelGST3B             = "GST 3B returns for last 12 months"
	LabelGST1              = "GST 1 returns for last 12 months"
	LabelExistingLoans     = "All Existing Loan Details"
	LabelTitleDocuments    = "Title Documents"
	LabelTaxReceipts       = "Tax paid Receipts"
	LabelSanctionPlan      = "Approved Sanction Plan"
	LabelEncumbrance       = "Encumberance Certificate"
	LabelTitleUnregistered = "Title Documents - Unregistered"
)

// Candidates lists the sub-type labels a document in cat may carry for this
// proposal. Per-person labels are generated for the applicant and for every
// named individual co-applicant.
func Candidates(cat constants.Category, p *entity.Proposal) []string {
	if p == nil {
		p = &entity.Proposal{}
	}
	name := p.DisplayName()
	individual := p.ApplicantType.IsIndividual()
	coApps := p.IndividualCoApplicants()

	var out []string
	switch cat {
	case constants.PersonalID:
		if individual {
			out = append(out, "PAN Card of "+name, "Aadhar Card of "+name)
		}
		for _, co := range coApps {
			out = append(out, "PAN Card of "+co.Name, "Aadhar Card of "+co.Name)
		}

	case constants.BusinessID:
		if !individual {
			out = append(out,
				fmt.Sprintf("PAN Card of %s (Non Individual)", name),
				"GST Certificate of "+name,
				"Labour License of "+name,
				"UDYAM Certificate of "+name,
			)
		}

	case constants.Incorporation:
		switch p.ApplicantType {
		case constants.ApplicantPartnership:
			out = append(out, LabelPartnershipDeed, LabelReconstitutedDeed)
		case constants.ApplicantPrivateLimited, constants.ApplicantPublicLimited:
			out = append(out, LabelIncorporationCert, LabelMoA, LabelAoA)
		}

	case constants.CreditReports:
		for _, co := range coApps {
			out = append(out, "Personal Credit Report of "+co.Name)
		}
		if !individual {
			out = append(out, "Business Credit Report of "+name)
		}

	case constants.Financials:
		out = append(out, itrLabels(name)...)
		for _, co := range coApps {
			out = append(out, itrLabels(co.Name)...)
		}

	case constants.Banking:
		out = append(out, "Bank Statement of "+name, "Overdraft Bank Statement of "+name)
		for _, co := range coApps {
			out = append(out, "Bank Statement of "+co.Name)
		}

	case constants.Turnover:
		out = append(out, LabelGST3B, LabelGST1)

	case constants.DebtProfile:
		out = append(out, LabelExistingLoans)

	case constants.Collateral:
		out = append(out, LabelTitleDocuments, LabelTaxReceipts, LabelSanctionPlan, LabelEncumbrance, LabelTitleUnregistered)
	}
	return out
}

func itrLabels(n string) []string {
	return []string{
		"ITR of Current Year of " + n,
		"ITR of Previous Year of " + n,
		"ITR of Preceding previous year of " + n,
	}
}
