package fallback

import (
	"regexp"
	"strings"
)

const months = `january|february|march|april|may|june|july|august|september|october|november|december`

const monthsAndAbbrev = months + `|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec`

var monthNames = map[string]string{
	"january": "January", "jan": "January",
	"february": "February", "feb": "February",
	"march": "March", "mar": "March",
	"april": "April", "apr": "April",
	"may": "May",
	"june": "June", "jun": "June",
	"july": "July", "jul": "July",
	"august": "August", "aug": "August",
	"september": "September", "sep": "September", "sept": "September",
	"october": "October", "oct": "October",
	"november": "November", "nov": "November",
	"december": "December", "dec": "December",
}

var (
	// "11th", and OCR slips such as "11t", lose their suffix.
	reOrdinal   = regexp.MustCompile(`(?i)\b(\d{1,2})[a-z]{1,2}\b`)
	reDayOf     = regexp.MustCompile(`(?i)\s+day\s+of\s+`)
	reSpaces    = regexp.MustCompile(`\s+`)
	reDayMonthY = regexp.MustCompile(`(?i)(\d{1,2})\s+([a-z]+)[,\s]+(\d{4})`)

	executionDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:made\s+and\s+executed\s+on|executed\s+on|this\s+deed.*?made\s+on)\s*(?:this\s+)?(\d{1,2}[a-z]*\s+day\s+of\s+(?:` + months + `)[,\s]+\d{4})`),
		regexp.MustCompile(`(?i)(?:dated\s+this|made\s+this)\s+(\d{1,2}[a-z]*\s+(?:day\s+of\s+)?(?:` + months + `)[,\s]+\d{4})`),
	}

	genericDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:dated|executed\s+on|dated\s+this|made\s+this|entered\s+into\s+on|deed\s+dated|this\s+deed\s+of\s+partnership\s+made\s+on|made\s+and\s+executed\s+on\s+this)\s*(?:the\s*)?(\d{1,2}(?:st|nd|rd|th)?[a-z]*\s+(?:day\s+of\s+)?(?:` + monthsAndAbbrev + `)[,\s]+\d{4})`),
		regexp.MustCompile(`(?i)(?:deed\s+date|date\s+of\s+deed|execution\s+date|on\s+this|amendment\s+dated)[\s:]+(\d{1,2}[\s/\-]\d{1,2}[\s/\-]\d{2,4})`),
	}

	reBareDate = regexp.MustCompile(`\b(\d{1,2}[\s/\-]\d{1,2}[\s/\-]\d{4})`)
	// "Dt." marks a reference to an older deed.
	reDtSuffix = regexp.MustCompile(`Dt\.?\s*$`)
)

// NormalizeDeedDate rewrites "11th day of JUNE, 2025" as "11 June 2025".
// Input without a day/month-name/year triple comes back cleaned but otherwise
// as given.
func NormalizeDeedDate(raw string) string {
	s := reOrdinal.ReplaceAllString(raw, "${1}")
	s = reDayOf.ReplaceAllString(s, " ")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))

	m := reDayMonthY.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	month, ok := monthNames[strings.ToLower(m[2])]
	if !ok {
		month = m[2]
	}
	return m[1] + " " + month + " " + m[3]
}

// FindDeedDate returns the normalized execution date of a deed, or "".
// Execution-date sentences win over any other date in the text.
func FindDeedDate(text string) string {
	for _, re := range executionDatePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return NormalizeDeedDate(m[1])
		}
	}
	for _, re := range genericDatePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return NormalizeDeedDate(m[1])
		}
	}
	for _, loc := range reBareDate.FindAllStringSubmatchIndex(text, -1) {
		if reDtSuffix.MatchString(text[:loc[0]]) {
			continue
		}
		return NormalizeDeedDate(text[loc[2]:loc[3]])
	}
	return ""
}
