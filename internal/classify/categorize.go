package classify

import (
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
)

type rule struct {
	category constants.Category
	match    func(name string) bool
}

func has(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// filenameRules are checked in order; the first hit wins. Specific rules sit
// ahead of the general ones they would otherwise shadow ("pan"+"company"
// before bare "pan", GST returns before GST certificates).
var filenameRules = []rule{
	{constants.PersonalID, func(n string) bool { return has(n, "pan") && !has(n, "company", "firm") }},
	{constants.PersonalID, func(n string) bool { return has(n, "aadhar", "aadhaar", "adhaar") }},

	{constants.BusinessID, func(n string) bool { return has(n, "gst") && !has(n, "return", "3b", "gstr") }},
	{constants.BusinessID, func(n string) bool { return has(n, "pan") && has(n, "company", "firm", "business") }},
	{constants.BusinessID, func(n string) bool { return has(n, "labour", "labor") }},
	{constants.BusinessID, func(n string) bool { return has(n, "udyam", "msme") }},

	{constants.Incorporation, func(n string) bool { return has(n, "partnership") && has(n, "deed") }},
	{constants.Incorporation, func(n string) bool { return has(n, "incorporation", "coi") }},
	{constants.Incorporation, func(n string) bool { return has(n, "moa", "memorandum") }},
	{constants.Incorporation, func(n string) bool { return has(n, "aoa", "articles") }},
	{constants.Incorporation, func(n string) bool { return has(n, "shareholder", "share holder", "directors") }},

	{constants.CreditReports, func(n string) bool { return has(n, "credit", "cibil", "experian") && has(n, "report", "score") }},

	{constants.Financials, func(n string) bool { return has(n, "itr") || (has(n, "income") && has(n, "tax")) }},
	{constants.Financials, func(n string) bool { return has(n, "26as", "form26", "form 26") }},
	{constants.Financials, func(n string) bool { return has(n, "p&l", "profit") || (has(n, "balance") && has(n, "sheet")) }},

	{constants.Banking, func(n string) bool { return has(n, "bank") && has(n, "statement") }},
	{constants.Banking, func(n string) bool { return has(n, "passbook") || (has(n, "account") && has(n, "statement")) }},
	{constants.Banking, func(n string) bool { return has(n, "od") && has(n, "statement") }},
	{constants.Banking, func(n string) bool { return has(n, "overdraft") }},

	{constants.Turnover, func(n string) bool { return has(n, "gst") && has(n, "3b", "return", "gstr") }},
	{constants.Turnover, func(n string) bool { return has(n, "gstr-1", "gstr1", "gst 1") }},
	{constants.Turnover, func(n string) bool { return has(n, "gstr-3b", "gstr3b", "gst 3b") }},

	{constants.DebtProfile, func(n string) bool { return has(n, "loan") && has(n, "detail", "statement", "sanction") }},
	{constants.DebtProfile, func(n string) bool { return has(n, "existing") && has(n, "loan") }},
	{constants.DebtProfile, func(n string) bool { return has(n, "emi", "liability") }},

	{constants.Collateral, func(n string) bool { return has(n, "title") && has(n, "deed") }},
	{constants.Collateral, func(n string) bool { return has(n, "property") && has(n, "document") }},
	{constants.Collateral, func(n string) bool { return has(n, "tax") && has(n, "receipt") }},
	{constants.Collateral, func(n string) bool { return has(n, "sanction") && has(n, "plan") }},
	// "ec" is a bare substring match and catches names like "sec_1.pdf".
	{constants.Collateral, func(n string) bool { return has(n, "encumbrance", "ec") }},
	{constants.Collateral, func(n string) bool { return has(n, "7/12", "8a") }},
}

// textRules only run when no filename rule matched. They look for phrases
// printed on the face of the document itself.
var textRules = []rule{
	{constants.PersonalID, func(t string) bool { return has(t, "unique identification authority") }},
	{constants.PersonalID, func(t string) bool { return has(t, "permanent account number") && !has(t, "goods and services tax") }},
	{constants.Incorporation, func(t string) bool { return has(t, "deed of partnership", "partnership deed") }},
	{constants.Incorporation, func(t string) bool { return has(t, "certificate of incorporation") }},
	{constants.BusinessID, func(t string) bool { return has(t, "goods and services tax") && has(t, "registration certificate") }},
	{constants.BusinessID, func(t string) bool { return has(t, "udyam registration") }},
	{constants.Turnover, func(t string) bool { return has(t, "form gstr-3b", "form gstr-1") }},
	{constants.Financials, func(t string) bool { return has(t, "indian income tax return") }},
	{constants.Banking, func(t string) bool { return has(t, "statement of account") }},
}

// AutoCategorize maps a filename, and when given the recovered text, to one of
// the fixed categories. An empty category means no rule matched.
func AutoCategorize(filename, text string) constants.Category {
	name := strings.ToLower(filename)
	for _, r := range filenameRules {
		if r.match(name) {
			return r.category
		}
	}
	if text == "" {
		return constants.Uncategorized
	}
	lower := strings.ToLower(text)
	for _, r := range textRules {
		if r.match(lower) {
			return r.category
		}
	}
	return constants.Uncategorized
}
