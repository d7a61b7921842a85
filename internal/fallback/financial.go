package fallback

import (
	"strings"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// DetectFinancialComponents flags which parts of an ITR filing set appear in text.
func DetectFinancialComponents(text string) entity.FinancialComponents {
	t := strings.ToLower(text)

	computation := hasAny(t, "computation of total income", "computation of income") ||
		(strings.Contains(t, "computation") && strings.Contains(t, "total income"))
	profitLoss := hasAny(t, "profit and loss account", "profit & loss account", "profit and loss a/c", "trading and profit") ||
		(strings.Contains(t, "profit") && strings.Contains(t, "loss") && strings.Contains(t, "account"))

	return entity.FinancialComponents{
		ITRAck:       hasAny(t, "indian income tax return acknowledgement", "itr acknowledgement", "acknowledgement number"),
		Computation:  computation,
		BalanceSheet: hasAny(t, "balance sheet", "balancesheet"),
		ProfitLoss:   profitLoss,
	}
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
