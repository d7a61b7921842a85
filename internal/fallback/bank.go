package fallback

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

var (
	reKnownBank = regexp.MustCompile(`(?i)(?:HDFC|ICICI|SBI|STATE BANK|AXIS|KOTAK|PUNJAB NATIONAL|CANARA|BANK OF BARODA|INDIAN OVERSEAS|FEDERAL|BANDHAN|KARUR VYSYA|SOUTH INDIAN|KARNATAKA|UNION|CENTRAL|INDUSIND|YES|RBL|IDBI|DCB|CITY UNION|TMB|TAMILNAD MERCANTILE)\s*BANK`)
	reBankLabel = regexp.MustCompile(`(?i)Bank\s+Name[:\s]+([A-Za-z \t]+Bank)`)

	accountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Account\s*(?:No|Number|#)\.?[:\s]*|A/c\s*No\.?[:\s]*|Acct\s*No\.?[:\s]*)(\d{9,18})`),
		regexp.MustCompile(`\b(\d{9,18})\b`),
	}

	// Explicit holder labels are tried before a bare "Name" so that
	// "Bank Name:" cannot shadow "Account Holder:".
	holderPatterns = []*regexp.Regexp{
		holderPattern(`Account\s*Holder|Customer\s*Name`, `[:\s]+`, true),
		holderPattern(`Account\s*Holder|Customer\s*Name`, `[:\s]+`, false),
		holderPattern(`\bName`, `[:\s]+`, true),
		holderPattern(`\bName`, `[:\s]+`, false),
		holderPattern(`Mr\.|Mrs\.|Ms\.|M/S`, `[.\s]+`, true),
		holderPattern(`Mr\.|Mrs\.|Ms\.|M/S`, `[.\s]+`, false),
	}
	reAddressTail = regexp.MustCompile(`(?i)\s+(?:Plot|Door|No|House|Flat|Building|Street|Road|Lane|Address|Branch)\b.*$`)

	periodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Statement\s*Period|Period)[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})\s*(?:to|[-–])\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
		regexp.MustCompile(`(?i)From[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})\s*To[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
	}
)

const holderStop = `(?:\s+(?:Plot|Door|No\.|House|Flat|Building|Street|Road|Lane|Address|Branch|A/c|Account|\d)|\s*[,\n])`

// holderPattern matches a name after label. Bounded patterns stop before the
// first address-like token; unbounded ones take up to 50 characters.
func holderPattern(label, sep string, bounded bool) *regexp.Regexp {
	name := `([A-Z][A-Za-z \t&.]{2,50})`
	if bounded {
		name = `([A-Z][A-Za-z \t&.]+?)` + holderStop
	}
	return regexp.MustCompile(`(?i)(?:` + label + `)` + sep + name)
}

// ExtractBankStatement reads the header facts of a bank statement. Fields
// that cannot be found stay entity.NotAvailable.
func ExtractBankStatement(text string) entity.BankStatementDetails {
	out := entity.EmptyBankStatement()

	if m := reKnownBank.FindString(text); m != "" {
		out.BankName = collapse(m)
	} else if m := reBankLabel.FindStringSubmatch(text); m != nil {
		out.BankName = collapse(m[1])
	}

	for _, re := range accountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			out.AccountNumber = m[1]
			break
		}
	}

	for _, re := range holderPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			holder := reAddressTail.ReplaceAllString(strings.TrimSpace(m[1]), "")
			if holder = collapse(holder); holder != "" {
				out.AccountHolder = holder
				break
			}
		}
	}

	for _, re := range periodPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			out.PeriodFrom = m[1]
			out.PeriodTo = m[2]
			out.Period = m[1] + " to " + m[2]
			break
		}
	}
	return out
}
