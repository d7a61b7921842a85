package debtprofile

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

var reNonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ParseWorkbook reads the first sheet of an xlsx workbook into debt profile
// rows. Progress fields are computed against now.
func ParseWorkbook(r io.Reader, proposalID uuid.UUID, now time.Time) ([]entity.DebtProfile, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return parseRows(raw, proposalID, now), nil
}

func parseRows(raw [][]string, proposalID uuid.UUID, now time.Time) []entity.DebtProfile {
	if len(raw) == 0 {
		return nil
	}
	hdr := findHeaderRow(raw)
	if hdr < 0 {
		hdr = 0
	}
	headers := make([]string, len(raw[hdr]))
	for i, h := range raw[hdr] {
		headers[i] = strings.TrimSpace(h)
	}

	var out []entity.DebtProfile
	for _, values := range raw[hdr+1:] {
		rw := newRow(headers, values)
		if rw.isBlank() {
			continue
		}
		if rw.value(colLoanAmount...) == "" && rw.value(colBank...) == "" && rw.value(colEMI...) == "" {
			continue
		}
		out = append(out, buildProfile(rw, len(out)+1, proposalID, now))
	}
	return out
}

func buildProfile(rw row, ordinal int, proposalID uuid.UUID, now time.Time) entity.DebtProfile {
	start := rw.value(colEMIStart...)
	tenure := leadingInt(rw.value(colTenure...))
	months, pct := TenureProgress(start, tenure, now)

	end := rw.value(colEMIEnd...)
	if end == "" {
		end = EMIEndDate(start, tenure)
	}

	sNo := ordinal
	if n := leadingInt(rw.value(colSNo...)); n != nil && *n > 0 {
		sNo = *n
	}

	return entity.DebtProfile{
		ProposalID:             proposalID,
		SNo:                    sNo,
		LoanApplicant:          rw.value(colApplicant...),
		Bank:                   rw.value(colBank...),
		LoanType:               rw.value(colLoanType...),
		LoanAmount:             parseAmount(rw.value(colLoanAmount...)),
		EMI:                    parseAmount(rw.value(colEMI...)),
		ROI:                    parseAmount(rw.value(colROI...)),
		SanctionDate:           formatDate(rw.value(colSanctionDate...)),
		Tenure:                 tenure,
		EMIStartDate:           formatDate(start),
		EMIEndDate:             formatDate(end),
		MonthsCompleted:        months,
		PercentTenureCompleted: pct,
	}
}

// parseAmount drops currency symbols, separators and units.
func parseAmount(s string) *float64 {
	s = reNonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// leadingInt parses the integer prefix of s, so "60 months" and "60.0" are 60.
func leadingInt(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}
