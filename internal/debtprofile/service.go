package debtprofile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

// FileOpener reads stored uploads.
type FileOpener interface {
	Open(proposalID uuid.UUID, filename string) (*os.File, error)
}

type Service struct {
	proposals repository.ProposalRepository
	profiles  repository.DebtProfileRepository
	files     FileOpener
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(proposals repository.ProposalRepository, profiles repository.DebtProfileRepository, files FileOpener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		proposals: proposals,
		profiles:  profiles,
		files:     files,
		now:       time.Now,
		logger:    logger,
	}
}

// ExtractForProposal rebuilds the proposal's debt profile from every
// spreadsheet filed under debtProfile. Existing rows are replaced.
func (s *Service) ExtractForProposal(ctx context.Context, proposalID uuid.UUID) ([]entity.DebtProfile, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var sheets []entity.Document
	for _, d := range p.DocumentsIn(constants.DebtProfile) {
		switch constants.ExtOf(d.Filename) {
		case "xlsx", "xls":
			sheets = append(sheets, d)
		}
	}
	if len(sheets) == 0 {
		return nil, common.InvalidArgumentError("No Excel files found in Debt Profile category")
	}

	now := s.now()
	var all []entity.DebtProfile
	for _, d := range sheets {
		rows, err := s.parseDocument(proposalID, d, now)
		if err != nil {
			s.logger.Warn("debtprofile.parse.failed",
				"proposal_id", proposalID, "document_id", d.ID, "filename", d.Filename, "error", err)
			continue
		}
		s.logger.Info("debtprofile.parse.ok", "proposal_id", proposalID, "document_id", d.ID, "rows", len(rows))
		all = append(all, rows...)
	}
	if len(all) == 0 {
		return nil, common.InvalidArgumentError("No data could be extracted from Excel files")
	}
	return s.profiles.ReplaceForProposal(ctx, proposalID, all)
}

func (s *Service) parseDocument(proposalID uuid.UUID, d entity.Document, now time.Time) ([]entity.DebtProfile, error) {
	if constants.ExtOf(d.Filename) == "xls" {
		return nil, fmt.Errorf("legacy .xls workbooks are not supported")
	}
	f, err := s.files.Open(proposalID, d.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseWorkbook(f, proposalID, now)
}

func (s *Service) List(ctx context.Context, proposalID uuid.UUID) ([]entity.DebtProfile, error) {
	return s.profiles.ListByProposal(ctx, proposalID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.DebtProfile, error) {
	return s.profiles.GetByID(ctx, id)
}

// Update applies a partial edit. Progress is recomputed when the edit
// touches the start date or tenure and both are then known.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch entity.DebtProfilePatch) (*entity.DebtProfile, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	d, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(d)
	if patch.EMIStartDate != nil || patch.Tenure != nil {
		if d.EMIStartDate != "" && d.Tenure != nil {
			d.MonthsCompleted, d.PercentTenureCompleted = TenureProgress(d.EMIStartDate, d.Tenure, s.now())
		}
	}
	out, err := s.profiles.Update(ctx, d)
	if err != nil {
		return nil, err
	}
	s.logger.Info("debtprofile.updated", "debt_profile_id", id, "proposal_id", out.ProposalID)
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.profiles.Delete(ctx, id)
}

func validatePatch(p entity.DebtProfilePatch) error {
	v := common.NewValidator().
		Field("loanAmount", p.LoanAmount, common.NonNegative).
		Field("emi", p.EMI, common.NonNegative).
		Field("roi", p.ROI, common.NonNegative).
		Field("tenure", p.Tenure, common.NonNegative).
		Field("currentOutstanding", p.CurrentOutstanding, common.NonNegative).
		Field("sanctionDate", p.SanctionDate, common.DatePattern).
		Field("emiStartDate", p.EMIStartDate, common.DatePattern).
		Field("emiEndDate", p.EMIEndDate, common.DatePattern).
		Field("loanApplicant", p.LoanApplicant, common.MaxLen(200)).
		Field("bank", p.Bank, common.MaxLen(200))
	return common.ValidateAndReturnError(v)
}
