package constants

import (
	"strings"
)

// Category is the coarse bucket a proposal document is filed under.
type Category string

const (
	PersonalID    Category = "personalId"
	BusinessID    Category = "businessId"
	Incorporation Category = "incorporation"
	CreditReports Category = "creditReports"
	Financials    Category = "financials"
	Banking       Category = "banking"
	Turnover      Category = "turnover"
	DebtProfile   Category = "debtProfile"
	Collateral    Category = "collateral"
	Uncategorized Category = ""
)

var allCategories = []Category{
	PersonalID,
	BusinessID,
	Incorporation,
	CreditReports,
	Financials,
	Banking,
	Turnover,
	DebtProfile,
	Collateral,
}

// Categories returns the fixed category list in display order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Canonicalize maps user input onto a category. Empty input is the valid
// "unclassified" value.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Uncategorized, true
	}

	synonyms := map[string]Category{
		"kyc":            PersonalID,
		"personal id":    PersonalID,
		"business id":    BusinessID,
		"credit report":  CreditReports,
		"credit reports": CreditReports,
		"bank statement": Banking,
		"gst returns":    Turnover,
		"debt profile":   DebtProfile,
		"property":       Collateral,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}
	return Uncategorized, false
}

// KeepsFullText reports whether documents in the category retain their full
// recovered text instead of a short prefix.
func (c Category) KeepsFullText() bool {
	return c == Financials || c == Turnover
}
