package debtprofile

import "strings"

// Column aliases, tried in order.
var (
	colSNo          = []string{"S.No", "SNo", "Sr.No"}
	colApplicant    = []string{"Applicant", "Loan Applicant", "Borrower", "Name"}
	colBank         = []string{"Bank Name", "Bank", "Lender", "Financial Institution"}
	colLoanType     = []string{"Loan Type", "Type of Loan", "Product"}
	colLoanAmount   = []string{"Loan Amount", "Amount", "Sanctioned Amount"}
	colEMI          = []string{"EMI", "Monthly EMI"}
	colROI          = []string{"ROI", "Rate of Interest", "Interest Rate", "Rate"}
	colSanctionDate = []string{"Sanction Date", "Date of Sanction"}
	colTenure       = []string{"Tenure", "Loan Tenure", "Tenure (Months)"}
	colEMIStart     = []string{"EMI Start Date", "EMI Start", "Start Date"}
	colEMIEnd       = []string{"EMI End Date", "EMI End", "End Date"}
)

// knownColumns holds every alias lowercased. A header that is itself an
// alias is never borrowed by another field through partial matching.
var knownColumns = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, set := range [][]string{colSNo, colApplicant, colBank, colLoanType, colLoanAmount, colEMI,
		colROI, colSanctionDate, colTenure, colEMIStart, colEMIEnd} {
		for _, a := range set {
			m[strings.ToLower(a)] = struct{}{}
		}
	}
	return m
}()

var headerKeywords = []string{"s.no", "sno", "sr.no", "applicant", "bank", "loan", "emi", "tenure", "roi"}

const (
	headerScanRows   = 10
	headerMinMatches = 3
)

type cell struct {
	key   string
	value string
}

// row keeps cells in header order; lookups depend on that order.
type row []cell

func newRow(headers, values []string) row {
	r := make(row, 0, len(headers))
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		if j, ok := index[h]; ok {
			r[j].value = v
			continue
		}
		index[h] = len(r)
		r = append(r, cell{key: h, value: v})
	}
	return r
}

// value looks a column up by exact name, then case-insensitive name, then
// partial name in either direction. Empty cells never match, and headers
// naming a different known column are skipped in the partial pass.
func (r row) value(names ...string) string {
	for _, n := range names {
		for _, c := range r {
			if c.key == n && c.value != "" {
				return c.value
			}
		}
	}
	for _, n := range names {
		ln := strings.ToLower(strings.TrimSpace(n))
		for _, c := range r {
			if strings.ToLower(strings.TrimSpace(c.key)) == ln && c.value != "" {
				return c.value
			}
		}
	}
	for _, n := range names {
		ln := strings.ToLower(strings.TrimSpace(n))
		for _, c := range r {
			lk := strings.ToLower(strings.TrimSpace(c.key))
			if _, known := knownColumns[lk]; known {
				continue
			}
			if (strings.Contains(lk, ln) || strings.Contains(ln, lk)) && c.value != "" {
				return c.value
			}
		}
	}
	return ""
}

func (r row) isBlank() bool {
	for _, c := range r {
		if c.value != "" {
			return false
		}
	}
	return true
}

// findHeaderRow returns the index of the first of the leading rows that
// names at least three debt schedule columns, or -1.
func findHeaderRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if len(rows[i]) == 0 {
			continue
		}
		parts := make([]string, len(rows[i]))
		for j, c := range rows[i] {
			parts[j] = strings.ToLower(strings.TrimSpace(c))
		}
		text := strings.Join(parts, " ")
		matches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		if matches >= headerMinMatches {
			return i
		}
	}
	return -1
}
