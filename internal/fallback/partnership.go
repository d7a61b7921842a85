package fallback

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

const (
	plWindow       = 1500
	partnerWindow  = 1000
	lastResortSpan = 2000
	lastResortMax  = 5
)

var (
	reHonorific = regexp.MustCompile(`(?i)^\s*(?:sri|shri|smt|mrs|mr|ms|m/s)(?:\.\s*|\s+)`)
	reNumber    = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	// "1 Sri.NAME NAME 50.00% 50.00%"; OCR often mangles the leading serial.
	reOCRPartnerRow = regexp.MustCompile(`(?i)(?:^|\n)\s*(?:[\dA-Z]+\s+)?(?:Sri\.?|Smt\.?|Mr\.?|Mrs\.?|Ms\.?)\s*([A-Z][A-Z\s.]+?)\s+(\d+(?:\.\d+)?)\s*%\s*[|\s]*(\d+(?:\.\d+)?)\s*%`)
	rePLTable       = regexp.MustCompile(`(?i)(?:THE\s+)?PROFIT\s+AND\s+LOSS[\s\S]*?(?:Total|100\.00%\s*\|?\s*100\.00%)`)
	reFlexPartner   = regexp.MustCompile(`(?i)(?:[\dA-Za-z]+\s+)?(?:Sri\.?|Smt\.?)\s*\.?\s*([A-Z][A-Z\s.]+?)\s+(\d+(?:\.\d+)?)\s*%\s*[|\s]*(\d+(?:\.\d+)?)\s*%`)

	rePLHeading       = regexp.MustCompile(`(?i)(?:THE\s+)?PROFIT\s+AND\s+LOSS`)
	reSurnamePartner  = regexp.MustCompile(`(?i)(?:Sri\.?|Smt\.?)\s*([A-Z][A-Z\s.]+?(?:REDDY|KUMAR|SINGH|RAO|NAIDU|SHARMA|BOMMU|ALLA)[A-Z\s]*?)\s+(\d+(?:\.\d+)?)\s*%\s*[|\s]*(\d+(?:\.\d+)?)\s*%`)
	rePartnerHeader   = regexp.MustCompile(`(?i)Name\s+of\s+the\s+Partner[\s\S]{0,100}?Profit[\s\S]{0,50}?Loss`)
	rePartnerBlockEnd = regexp.MustCompile(`(?i)Total|MANAGEMENT|100\.00%\s*\|?\s*100\.00%`)
	rePartnerBlockRow = regexp.MustCompile(`(?i)(?:\d+\s*[|\s]+)?(?:Sri\.?|Smt\.?)\s*([A-Z][A-Z\s.]+?)\s+(\d+(?:\.\d+)?)\s*%\s*[|\s]*(\d+(?:\.\d+)?)\s*%`)
	reBarePartner     = regexp.MustCompile(`([A-Z][A-Z \t]{5,40}?)\s+(\d{1,3}(?:\.\d{1,2})?)\s*%\s*[|\s]*(\d{1,3}(?:\.\d{1,2})?)\s*%`)
)

var partnerStopWords = []string{"total", "partner", "name", "profit", "loss", "sharing", "ratio", "percentage", "share"}

// ExtractPartnershipDeed recovers the deed date and the partners' profit and
// loss shares. Partners from a detected profit/loss table win; otherwise the
// text layers run in order of decreasing strictness.
func ExtractPartnershipDeed(text string, tables []entity.ExtractedTable) entity.PartnershipDetails {
	out := entity.PartnershipDetails{Partners: []entity.Partner{}}
	if strings.TrimSpace(text) == "" && len(tables) == 0 {
		return out
	}

	ps := &partnerSet{}
	partnersFromTables(ps, tables)

	if d := FindDeedDate(text); d != "" {
		out.DeedDate = &d
	}

	layers := []func(*partnerSet, string){
		partnersFromOCRRows,
		partnersFromPLSection,
		partnersFromHeaderBlock,
		partnersLastResort,
	}
	for _, layer := range layers {
		if len(ps.list) > 0 {
			break
		}
		layer(ps, text)
	}
	out.Partners = append(out.Partners, ps.list...)
	return out
}

type partnerSet struct {
	list []entity.Partner
	seen map[string]struct{}
}

func partnerKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// add keeps the first partner seen for each normalized name.
func (s *partnerSet) add(p entity.Partner) bool {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	k := partnerKey(p.Name)
	if k == "" {
		return false
	}
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	s.list = append(s.list, p)
	return true
}

// hasFirstName reports whether an existing partner shares name's first word.
func (s *partnerSet) hasFirstName(name string) bool {
	f := strings.Fields(strings.ToLower(name))
	if len(f) == 0 {
		return false
	}
	for _, p := range s.list {
		if strings.Contains(strings.ToLower(p.Name), f[0]) {
			return true
		}
	}
	return false
}

func cleanName(s string) string {
	s = reHonorific.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(strings.Trim(s, " .|")), " ")
}

func isStopName(name string, words ...string) bool {
	lower := strings.ToLower(name)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func percentFrom(cell string) (entity.Percent, bool) {
	m := reNumber.FindString(cell)
	if m == "" {
		return entity.PercentNote(entity.PercentNotSpecified), false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return entity.PercentNote(entity.PercentNotSpecified), false
	}
	return entity.PercentOf(f), true
}

func partnersFromTables(ps *partnerSet, tables []entity.ExtractedTable) {
	pl := entity.TablesOfType(tables, constants.TablePartnershipProfitLoss)
	if len(pl) == 0 {
		return
	}
	for _, row := range pl[0].Rows {
		if len(row) < 2 {
			continue
		}
		name := cleanName(row[0])
		if len(name) <= 2 || isStopName(name, "total", "partner") {
			continue
		}

		profitCell, lossCell := row[1], ""
		if len(row) > 2 {
			lossCell = row[2]
		}
		if i := percentCell(row, 1); i > 0 {
			profitCell = row[i]
			if j := percentCell(row, i+1); j > 0 {
				lossCell = row[j]
			} else if i+1 < len(row) {
				lossCell = row[i+1]
			}
		}

		profit, okP := percentFrom(profitCell)
		loss, okL := percentFrom(lossCell)
		if !okP && !okL {
			continue
		}
		ps.add(entity.Partner{Name: name, ProfitPercent: profit, LossPercent: loss})
	}
}

// percentCell returns the index of the first cell at or after from holding a
// '%', or -1.
func percentCell(row []string, from int) int {
	for i := from; i < len(row); i++ {
		if strings.Contains(row[i], "%") {
			return i
		}
	}
	return -1
}

func numberPair(m []string) (float64, float64) {
	p, _ := strconv.ParseFloat(m[2], 64)
	l, _ := strconv.ParseFloat(m[3], 64)
	return p, l
}

func partnersFromOCRRows(ps *partnerSet, text string) {
	matches := reOCRPartnerRow.FindAllStringSubmatch(text, -1)
	if len(matches) < 2 {
		if section := rePLTable.FindString(text); section != "" {
			if flex := reFlexPartner.FindAllStringSubmatch(section, -1); len(flex) > len(matches) {
				matches = flex
			}
		}
	}
	for _, m := range matches {
		name := cleanName(m[1])
		profit, loss := numberPair(m)
		if len(name) < 3 || isStopName(name, "total", "partner") || profit <= 0 {
			continue
		}
		ps.add(entity.Partner{Name: name, ProfitPercent: entity.PercentOf(profit), LossPercent: entity.PercentOf(loss)})
	}
}

func partnersFromPLSection(ps *partnerSet, text string) {
	loc := rePLHeading.FindStringIndex(text)
	if loc == nil {
		return
	}
	section := window(text, loc[1], plWindow)
	for _, m := range reSurnamePartner.FindAllStringSubmatch(section, -1) {
		name := cleanName(m[1])
		profit, loss := numberPair(m)
		if len(name) <= 3 || profit <= 0 || ps.hasFirstName(name) {
			continue
		}
		ps.add(entity.Partner{Name: name, ProfitPercent: entity.PercentOf(profit), LossPercent: entity.PercentOf(loss)})
	}
}

func partnersFromHeaderBlock(ps *partnerSet, text string) {
	loc := rePartnerHeader.FindStringIndex(text)
	if loc == nil {
		return
	}
	block := window(text, loc[1], partnerWindow)
	end := rePartnerBlockEnd.FindStringIndex(block)
	if end == nil {
		return
	}
	block = block[:end[0]]
	for _, m := range rePartnerBlockRow.FindAllStringSubmatch(block, -1) {
		name := cleanName(m[1])
		profit, loss := numberPair(m)
		if len(name) <= 3 || profit <= 0 || isStopName(name, "total") {
			continue
		}
		ps.add(entity.Partner{Name: name, ProfitPercent: entity.PercentOf(profit), LossPercent: entity.PercentOf(loss)})
	}
}

// partnersLastResort accepts any upper-case "NAME NN% NN%" run. When the
// text has a PROFIT AND LOSS heading only matches in the 2000 bytes after it
// count, and never more than the first five.
func partnersLastResort(ps *partnerSet, text string) {
	locs := reBarePartner.FindAllStringSubmatchIndex(text, -1)
	if anchor := strings.Index(strings.ToUpper(text), "PROFIT AND LOSS"); anchor >= 0 {
		kept := locs[:0]
		for _, l := range locs {
			if l[0] > anchor && l[0] < anchor+lastResortSpan {
				kept = append(kept, l)
			}
		}
		locs = kept
	}
	if len(locs) > lastResortMax {
		locs = locs[:lastResortMax]
	}
	for _, l := range locs {
		m := []string{text[l[0]:l[1]], text[l[2]:l[3]], text[l[4]:l[5]], text[l[6]:l[7]]}
		name := cleanName(m[1])
		profit, loss := numberPair(m)
		if len(name) < 5 || isStopName(name, partnerStopWords...) {
			continue
		}
		if profit <= 0 || profit > 100 {
			continue
		}
		ps.add(entity.Partner{Name: name, ProfitPercent: entity.PercentOf(profit), LossPercent: entity.PercentOf(loss)})
	}
}

// window returns up to n bytes of s starting at from, cut on a rune boundary.
func window(s string, from, n int) string {
	end := from + n
	if end >= len(s) {
		return s[from:]
	}
	for end > from && !isRuneStart(s[end]) {
		end--
	}
	return s[from:end]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
