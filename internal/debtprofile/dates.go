package debtprofile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "02/01/2006"

// excelEpochOffset is the serial number of 1970-01-01 in Excel's 1900 system.
const excelEpochOffset = 25569

var reDateSep = regexp.MustCompile(`[/\-.]`)

// parseDate reads an Excel serial number, DD/MM/YYYY (with / - or .) or
// YYYY-MM-DD.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		secs := math.Round((serial - excelEpochOffset) * 86400)
		t := time.Unix(int64(secs), 0).UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}

	if i := strings.IndexAny(raw, " T"); i > 0 {
		raw = raw[:i]
	}
	parts := reDateSep.Split(raw, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if len(strings.TrimSpace(parts[0])) == 4 {
		year, month, day = nums[0], nums[1], nums[2]
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// formatDate renders a parseable value as DD/MM/YYYY and passes anything
// else through trimmed.
func formatDate(raw string) string {
	if t, ok := parseDate(raw); ok {
		return t.Format(dateLayout)
	}
	return strings.TrimSpace(raw)
}

// TenureProgress reports how many EMI months have elapsed since start and
// the share of tenure that represents, capped at 100.
func TenureProgress(start string, tenure *int, now time.Time) (monthsCompleted, percent int) {
	if tenure == nil || *tenure <= 0 {
		return 0, 0
	}
	t, ok := parseDate(start)
	if !ok {
		return 0, 0
	}
	now = now.UTC()
	months := (now.Year()-t.Year())*12 + int(now.Month()) - int(t.Month())
	if months < 0 {
		months = 0
	}
	pct := int(math.Round(float64(months) / float64(*tenure) * 100))
	if pct > 100 {
		pct = 100
	}
	return months, pct
}

// EMIEndDate adds the tenure in months to start.
func EMIEndDate(start string, tenure *int) string {
	if tenure == nil || *tenure <= 0 {
		return ""
	}
	t, ok := parseDate(start)
	if !ok {
		return ""
	}
	return t.AddDate(0, *tenure, 0).Format(dateLayout)
}
