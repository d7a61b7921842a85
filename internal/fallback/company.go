package fallback

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

var (
	companyNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:company\s+name|name\s+of\s+(?:the\s+)?company)[\s:]+([A-Z][A-Za-z \t]+(?:PRIVATE|PVT\.?)\s*(?:LIMITED|LTD\.?))`),
		regexp.MustCompile(`([A-Z][A-Za-z \t]+(?:PRIVATE|PVT\.?)\s*(?:LIMITED|LTD\.?))`),
	}

	reHolding     = regexp.MustCompile(`(?i)([A-Z][a-zA-Z \t]+?)(?:\s*[-–]\s*|\s+holding\s+|\s+holds\s+)(\d+(?:,\d+)*)\s*(?:equity\s+)?shares`)
	reHeldBy      = regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:equity\s+)?shares?\s+(?:held\s+by|of)\s+([A-Z][a-zA-Z \t]+)`)
	reShareholder = regexp.MustCompile(`([A-Z][a-zA-Z \t]+?)\s+(\d+(?:,\d+)*)\s+(\d+(?:\.\d+)?)\s*%`)

	reDINFirst   = regexp.MustCompile(`(?i)DIN[\s:]+(\d{8})\s+([A-Z][a-zA-Z \t]+?)\s+(?:Director|Managing|Whole|Executive)`)
	reDINAfter   = regexp.MustCompile(`(?i)([A-Z][a-zA-Z \t]+?)\s*\(?\s*DIN[\s:]+(\d{8})\s*\)?`)
	reTitleFirst = regexp.MustCompile(`(?i)(?:Managing\s+Director|Whole\s+Time\s+Director|Director)[\s:]+([A-Z][a-zA-Z \t]+?)(?:\s*[-–,]|\s+DIN)`)
	reDINRow     = regexp.MustCompile(`(?i)([A-Z][a-zA-Z \t]+?)\s+(\d{8})\s+(Director|Managing|Whole|Executive)`)

	reDIN         = regexp.MustCompile(`^\d{8}$`)
	reDesignation = regexp.MustCompile(`(?i)director|managing|executive`)
)

const defaultDesignation = "Director"

// ExtractCompanyDetails recovers a private or public limited company's name,
// shareholders and directors. Names are deduplicated case-insensitively, and
// rows from shareholder or director tables only add names the text did not
// already yield.
func ExtractCompanyDetails(text string, tables []entity.ExtractedTable) entity.CompanyDetails {
	out := entity.CompanyDetails{
		Shareholders: []entity.Shareholder{},
		Directors:    []entity.Director{},
	}

	for _, re := range companyNamePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			out.CompanyName = collapse(m[1])
			break
		}
	}

	holders := newNameSet()
	add := func(name, shares, pct string) {
		name = collapse(name)
		if len(name) <= 2 || len(name) >= 100 || !holders.add(name) {
			return
		}
		shares = strings.ReplaceAll(shares, ",", "")
		if shares == "" {
			shares = "-"
		}
		out.Shareholders = append(out.Shareholders, entity.Shareholder{Name: name, Shares: shares, Percentage: parsePct(pct)})
	}
	for _, m := range reHolding.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], "")
	}
	for _, m := range reHeldBy.FindAllStringSubmatch(text, -1) {
		add(m[2], m[1], "")
	}
	for _, m := range reShareholder.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], m[3])
	}

	directors := newNameSet()
	addDir := func(name, din, designation string) {
		name = collapse(name)
		if len(name) <= 2 || len(name) >= 100 || !directors.add(name) {
			return
		}
		if !reDIN.MatchString(din) {
			din = "-"
		}
		if designation == "" {
			designation = defaultDesignation
		}
		out.Directors = append(out.Directors, entity.Director{Name: name, DIN: din, Designation: designation})
	}
	for _, m := range reDINFirst.FindAllStringSubmatch(text, -1) {
		addDir(m[2], m[1], "")
	}
	for _, m := range reDINAfter.FindAllStringSubmatch(text, -1) {
		addDir(m[1], m[2], "")
	}
	for _, m := range reTitleFirst.FindAllStringSubmatch(text, -1) {
		addDir(m[1], "", "")
	}
	for _, m := range reDINRow.FindAllStringSubmatch(text, -1) {
		addDir(m[1], m[2], m[3])
	}

	for _, t := range tables {
		header := strings.ToLower(strings.Join(t.Headers, " "))
		if strings.Contains(header, "share") || strings.Contains(header, "holder") {
			for _, row := range t.Rows {
				if len(row) < 2 {
					continue
				}
				pct := ""
				if len(row) > 2 {
					pct = row[2]
				}
				add(row[0], row[1], pct)
			}
		}
		if strings.Contains(header, "director") || strings.Contains(header, "din") {
			for _, row := range t.Rows {
				if len(row) == 0 {
					continue
				}
				din, designation := "", ""
				for _, cell := range row[1:] {
					cell = strings.TrimSpace(cell)
					if din == "" && reDIN.MatchString(cell) {
						din = cell
					}
					if designation == "" && reDesignation.MatchString(cell) {
						designation = cell
					}
				}
				addDir(row[0], din, designation)
			}
		}
	}
	return out
}

type nameSet map[string]struct{}

func newNameSet() nameSet { return nameSet{} }

// add reports whether name was new.
func (s nameSet) add(name string) bool {
	k := strings.ToLower(name)
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = struct{}{}
	return true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parsePct(s string) *float64 {
	m := reNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}
