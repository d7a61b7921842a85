package ocr

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

var (
	reTableKeyword  = regexp.MustCompile(`(?i)partner|name|profit|loss|ratio|percentage|account|bank|date|period`)
	rePercentOrYear = regexp.MustCompile(`\d+(?:\.\d+)?%|\d{4}`)
	reColumnGap     = regexp.MustCompile(`\t+| {2,}`)
	reRuleCell      = regexp.MustCompile(`^:?-{3,}:?$`)
)

var tableTypeRules = []struct {
	re *regexp.Regexp
	t  constants.TableType
}{
	{regexp.MustCompile(`partner.*profit.*loss|profit.*loss.*ratio`), constants.TablePartnershipProfitLoss},
	{regexp.MustCompile(`bank.*account|account.*holder`), constants.TableBankStatement},
	{regexp.MustCompile(`transaction|debit|credit`), constants.TableTransaction},
}

// DetectTables groups consecutive table-like lines of one page into tables.
// A table needs at least two rows; the first becomes the header.
func DetectTables(pageNum int, lines []Line) []entity.ExtractedTable {
	var (
		tables []entity.ExtractedTable
		buf    [][]string
	)
	flush := func() {
		if len(buf) >= 2 {
			t := entity.ExtractedTable{PageNum: pageNum, Headers: buf[0], Rows: buf[1:]}
			t.Type = DetectTableType(t)
			tables = append(tables, t)
		}
		buf = nil
	}
	for _, l := range lines {
		if strings.TrimSpace(l.Text) == "" || !isTableRow(l) {
			flush()
			continue
		}
		cells := rowCells(l)
		if isRuleRow(cells) {
			continue
		}
		if len(cells) > 0 {
			buf = append(buf, cells)
		}
	}
	flush()
	return tables
}

// DetectTablesInPages runs DetectTables over every page.
func DetectTablesInPages(pages []Page) []entity.ExtractedTable {
	var out []entity.ExtractedTable
	for _, p := range pages {
		out = append(out, DetectTables(p.Number, p.Lines)...)
	}
	return out
}

// DetectTableType matches keyword co-occurrence over the serialized table.
func DetectTableType(t entity.ExtractedTable) constants.TableType {
	b, err := json.Marshal(struct {
		Headers []string   `json:"headers"`
		Rows    [][]string `json:"rows"`
	}{t.Headers, t.Rows})
	if err != nil {
		return constants.TableGeneral
	}
	s := strings.ToLower(string(b))
	for _, r := range tableTypeRules {
		if r.re.MatchString(s) {
			return r.t
		}
	}
	return constants.TableGeneral
}

func isTableRow(l Line) bool {
	if strings.Contains(l.Text, "|") {
		return true
	}
	if len(l.Fragments) < 3 {
		return false
	}
	for _, f := range l.Fragments {
		if rePercentOrYear.MatchString(f.Text) {
			return true
		}
	}
	return reTableKeyword.MatchString(l.Text)
}

func rowCells(l Line) []string {
	var cells []string
	if strings.Contains(l.Text, "|") {
		for _, c := range strings.Split(l.Text, "|") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		return cells
	}
	for _, f := range l.Fragments {
		if c := strings.TrimSpace(f.Text); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// isRuleRow spots markdown separator rows such as |---|:---:|.
func isRuleRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !reRuleCell.MatchString(c) {
			return false
		}
	}
	return true
}

// LinesFromText rebuilds pages of lines from plain text. Pages are split on
// form feeds; fragments are the runs separated by tabs or two or more spaces,
// which is how layout-preserving engines render columns.
func LinesFromText(text string) []Page {
	var pages []Page
	for i, raw := range strings.Split(text, "\f") {
		page := Page{Number: i + 1}
		for _, ln := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(ln)
			line := Line{Text: trimmed}
			if trimmed != "" {
				line.Fragments = splitFragments(ln)
			}
			page.Lines = append(page.Lines, line)
		}
		pages = append(pages, page)
	}
	return pages
}

func splitFragments(ln string) []Fragment {
	var frags []Fragment
	pos := 0
	for _, loc := range append(reColumnGap.FindAllStringIndex(ln, -1), []int{len(ln), len(ln)}) {
		if part := strings.TrimSpace(ln[pos:loc[0]]); part != "" {
			frags = append(frags, Fragment{X: float64(pos), Text: part})
		}
		pos = loc[1]
	}
	return frags
}
