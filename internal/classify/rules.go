package classify

import (
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// MatchRules picks a candidate from filename and text keywords alone. An
// empty result means the rules could not decide.
func MatchRules(filename, text string, cat constants.Category, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	name := strings.ToLower(filename)
	body := strings.ToLower(text)
	pick := func(sub string) string { return firstContaining(candidates, sub) }

	switch cat {
	case constants.PersonalID:
		if has(name, "pan") || has(body, "permanent account number", "income tax department") {
			return matchPerson(name, body, candidates, "PAN Card of ")
		}
		if has(name, "aadhar", "aadhaar") || has(body, "unique identification", "aadhaar") {
			return matchPerson(name, body, candidates, "Aadhar Card of ")
		}

	case constants.BusinessID:
		switch {
		case has(name, "pan") || has(body, "permanent account number"):
			return pick("PAN Card")
		case has(name, "gst") || has(body, "goods and services tax"):
			return pick("GST Certificate")
		case has(name, "labour", "labor"):
			return pick("Labour License")
		case has(name, "udyam", "msme"):
			return pick("UDYAM")
		}

	case constants.Incorporation:
		switch {
		case has(name, "reconstitut") || has(body, "reconstitution"):
			return pick("Reconstituted")
		case has(name, "partnership") || has(body, "partnership deed"):
			return pick("Partnership deed")
		case has(name, "incorporation", "coi"):
			return pick(LabelIncorporationCert)
		case has(name, "moa", "memorandum"):
			return pick(LabelMoA)
		case has(name, "aoa", "articles"):
			return pick(LabelAoA)
		}

	case constants.Turnover:
		switch {
		case has(name, "3b", "gstr3b", "gstr-3b"):
			return pick(LabelGST3B)
		case has(name, "gstr1", "gstr-1", "gst1"):
			return pick(LabelGST1)
		}

	case constants.DebtProfile:
		return pick(LabelExistingLoans)

	case constants.Collateral:
		switch {
		case has(name, "tax") && has(name, "receipt"):
			return pick(LabelTaxReceipts)
		case has(name, "sanction", "plan"):
			return pick(LabelSanctionPlan)
		case has(name, "encumbr", "ec"):
			return pick(LabelEncumbrance)
		case has(name, "unregist"):
			return pick(LabelTitleUnregistered)
		case has(name, "title", "deed"):
			return pick(LabelTitleDocuments)
		}
	}
	return ""
}

// matchPerson prefers the candidate whose person appears in the document:
// the first word of the name in the filename, or the full name in the text.
// Without a match it falls back to the first candidate of that kind.
func matchPerson(name, body string, candidates []string, prefix string) string {
	first := ""
	for _, c := range candidates {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		if first == "" {
			first = c
		}
		person := strings.ToLower(strings.TrimPrefix(c, prefix))
		fields := strings.Fields(person)
		if len(fields) == 0 {
			continue
		}
		if strings.Contains(name, fields[0]) || strings.Contains(body, person) {
			return c
		}
	}
	return first
}

// firstContaining returns the first candidate containing sub. Partnership
// deed lookups skip the reconstituted variant.
func firstContaining(candidates []string, sub string) string {
	for _, c := range candidates {
		if !strings.Contains(c, sub) {
			continue
		}
		if sub == "Partnership deed" && strings.Contains(c, "Reconstituted") {
			continue
		}
		return c
	}
	return ""
}
