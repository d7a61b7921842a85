package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/fallback"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/metrics"
)

// detailsStrategy produces structured facts or reports that it has none.
type detailsStrategy struct {
	name string
	run  func(ctx context.Context, text string, tables []entity.ExtractedTable) (*entity.ExtractedDetails, bool)
}

// extractDetails runs the category's strategy chain and returns the first
// usable result, or nil for categories without structured facts.
func (p *Processor) extractDetails(ctx context.Context, prop *entity.Proposal, cat constants.Category, text string, tables []entity.ExtractedTable) *entity.ExtractedDetails {
	for _, s := range p.detailsChain(prop, cat) {
		d, ok := s.run(ctx, text, tables)
		if !ok {
			p.logger.Debug("details.strategy.empty", "proposal_id", prop.ID, "category", cat, "strategy", s.name)
			continue
		}
		metrics.DetailsSource.WithLabelValues(string(d.Kind), d.Source).Inc()
		return d
	}
	return nil
}

func (p *Processor) detailsChain(prop *entity.Proposal, cat constants.Category) []detailsStrategy {
	switch cat {
	case constants.Incorporation:
		if prop.ApplicantType.IsCompany() {
			return []detailsStrategy{{name: "regex-company", run: regexCompany}}
		}
		return p.withAI(llm.PartnershipDeedTarget{}, aiDeed, detailsStrategy{name: "regex-deed", run: regexDeed})
	case constants.Banking:
		return p.withAI(llm.BankStatementTarget{}, aiBank, detailsStrategy{name: "regex-bank", run: regexBank})
	case constants.Financials:
		return []detailsStrategy{{name: "financial-components", run: financialFlags}}
	default:
		return nil
	}
}

// withAI puts a Document AI strategy ahead of the regex fallback when AI
// extraction is enabled.
func (p *Processor) withAI(target llm.Target, convert func(llm.DocumentResult) (*entity.ExtractedDetails, bool), regex detailsStrategy) []detailsStrategy {
	if !p.opts.EnableDocumentAI || p.docAI == nil {
		return []detailsStrategy{regex}
	}
	ai := detailsStrategy{
		name: "ai-" + string(target.Kind()),
		run: func(ctx context.Context, text string, tables []entity.ExtractedTable) (*entity.ExtractedDetails, bool) {
			res := p.docAI.ExtractDocument(ctx, target, text, tables)
			if !res.Success {
				p.logger.Info("details.ai.fallback", "target", target.Kind(), "kind", llm.KindOf(res.Err), "error", res.Error)
				return nil, false
			}
			if !target.Usable(res.Data) {
				p.logger.Info("details.ai.unusable", "target", target.Kind())
				return nil, false
			}
			return convert(res)
		},
	}
	return []detailsStrategy{ai, regex}
}

func aiDeed(res llm.DocumentResult) (*entity.ExtractedDetails, bool) {
	data, ok := res.PartnershipDeed()
	if !ok {
		return nil, false
	}
	d := entity.PartnershipDetails{Partners: make([]entity.Partner, 0, len(data.Partners))}
	if data.DateOfExecution != nil && strings.TrimSpace(*data.DateOfExecution) != "" {
		date := strings.TrimSpace(*data.DateOfExecution)
		d.DeedDate = &date
	}
	for _, s := range data.Partners {
		d.Partners = append(d.Partners, entity.Partner{
			Name:          s.Name,
			ProfitPercent: percentOrNote(s.ProfitPercentage),
			LossPercent:   percentOrNote(s.LossPercentage),
		})
	}
	return entity.NewPartnershipDetails(d, constants.MethodDocumentAI), true
}

func aiBank(res llm.DocumentResult) (*entity.ExtractedDetails, bool) {
	data, ok := res.BankStatement()
	if !ok {
		return nil, false
	}
	d := entity.EmptyBankStatement()
	setIf := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}
	setIf(&d.BankName, data.BankName)
	setIf(&d.AccountHolder, data.AccountHolder)
	setIf(&d.AccountNumber, data.AccountNumber)
	setIf(&d.PeriodFrom, data.PeriodFrom)
	setIf(&d.PeriodTo, data.PeriodTo)
	if d.PeriodFrom != entity.NotAvailable && d.PeriodTo != entity.NotAvailable {
		d.Period = fmt.Sprintf("%s to %s", d.PeriodFrom, d.PeriodTo)
	}
	return entity.NewBankStatementDetails(d, constants.MethodDocumentAI), true
}

func percentOrNote(v *float64) entity.Percent {
	if v == nil {
		return entity.PercentNote(entity.PercentNotSpecified)
	}
	return entity.PercentOf(*v)
}

func regexDeed(_ context.Context, text string, tables []entity.ExtractedTable) (*entity.ExtractedDetails, bool) {
	return entity.NewPartnershipDetails(fallback.ExtractPartnershipDeed(text, tables), constants.MethodRegex), true
}

func regexCompany(_ context.Context, text string, tables []entity.ExtractedTable) (*entity.ExtractedDetails, bool) {
	return entity.NewCompanyDetails(fallback.ExtractCompanyDetails(text, tables), constants.MethodRegex), true
}

func regexBank(_ context.Context, text string, _ []entity.ExtractedTable) (*entity.ExtractedDetails, bool) {
	return entity.NewBankStatementDetails(fallback.ExtractBankStatement(text), constants.MethodRegex), true
}

func financialFlags(_ context.Context, text string, _ []entity.ExtractedTable) (*entity.ExtractedDetails, bool) {
	return entity.NewFinancialDetails(fallback.DetectFinancialComponents(text), constants.MethodRegex), true
}
