package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

type DebtProfileRepository interface {
	ReplaceForProposal(ctx context.Context, proposalID uuid.UUID, rows []entity.DebtProfile) ([]entity.DebtProfile, error)
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]entity.DebtProfile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.DebtProfile, error)
	Update(ctx context.Context, d *entity.DebtProfile) (*entity.DebtProfile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type debtProfileRepository struct {
	db     *DB
	now    func() time.Time
	logger *slog.Logger
}

func NewDebtProfileRepository(db *DB, logger *slog.Logger) DebtProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &debtProfileRepository{db: db, now: time.Now, logger: logger}
}

const debtProfileColumns = `id, proposal_id, s_no, loan_applicant, bank, loan_type, loan_amount, emi, roi,
	sanction_date, tenure, emi_start_date, emi_end_date, months_completed, percent_tenure_completed,
	current_outstanding, emi_bank_statement_provided, emi_bank_account_number, created_at, updated_at`

// ReplaceForProposal deletes the proposal's rows and inserts rows in their
// place within one transaction.
func (r *debtProfileRepository) ReplaceForProposal(ctx context.Context, proposalID uuid.UUID, rows []entity.DebtProfile) ([]entity.DebtProfile, error) {
	now := r.now().UTC()
	out := make([]entity.DebtProfile, len(rows))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT 1 FROM proposals WHERE id = ?`), proposalID.String()).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return common.NotFoundError(fmt.Sprintf("proposal %s not found", proposalID))
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.db.rebind(`DELETE FROM debt_profiles WHERE proposal_id = ?`), proposalID.String()); err != nil {
			return err
		}
		for i, d := range rows {
			d.ProposalID = proposalID
			if d.ID == uuid.Nil {
				d.ID = uuid.New()
			}
			d.CreatedAt, d.UpdatedAt = now, now
			if err := r.insert(ctx, tx, &d); err != nil {
				return err
			}
			out[i] = d
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to replace debt profiles", "proposal_id", proposalID, "error", err)
		return nil, err
	}
	r.logger.Info("debt profiles replaced", "proposal_id", proposalID, "count", len(out))
	return out, nil
}

func (r *debtProfileRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]entity.DebtProfile, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`SELECT `+debtProfileColumns+` FROM debt_profiles
		WHERE proposal_id = ? ORDER BY s_no, created_at`), proposalID.String())
	if err != nil {
		r.logger.Error("failed to list debt profiles", "proposal_id", proposalID, "error", err)
		return nil, err
	}
	defer rows.Close()

	out := []entity.DebtProfile{}
	for rows.Next() {
		d, err := scanDebtProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *debtProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.DebtProfile, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+debtProfileColumns+` FROM debt_profiles WHERE id = ?`), id.String())
	d, err := scanDebtProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("debt profile %s not found", id))
	}
	return d, err
}

// Update writes every mutable column of d.
func (r *debtProfileRepository) Update(ctx context.Context, d *entity.DebtProfile) (*entity.DebtProfile, error) {
	out := *d
	out.UpdatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE debt_profiles SET
		loan_applicant = ?, bank = ?, loan_type = ?, loan_amount = ?, emi = ?, roi = ?,
		sanction_date = ?, tenure = ?, emi_start_date = ?, emi_end_date = ?, months_completed = ?,
		percent_tenure_completed = ?, current_outstanding = ?, emi_bank_statement_provided = ?,
		emi_bank_account_number = ?, updated_at = ?
		WHERE id = ?`),
		out.LoanApplicant, out.Bank, out.LoanType, nullFloat(out.LoanAmount), nullFloat(out.EMI), nullFloat(out.ROI),
		out.SanctionDate, nullInt(out.Tenure), out.EMIStartDate, out.EMIEndDate, out.MonthsCompleted,
		out.PercentTenureCompleted, nullFloat(out.CurrentOutstanding), out.EMIBankStatementProvided,
		out.EMIBankAccountNumber, r.db.ts(out.UpdatedAt), out.ID.String())
	if err != nil {
		r.logger.Error("failed to update debt profile", "debt_profile_id", out.ID, "error", err)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.NotFoundError(fmt.Sprintf("debt profile %s not found", out.ID))
	}
	return &out, nil
}

func (r *debtProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM debt_profiles WHERE id = ?`), id.String())
	if err != nil {
		r.logger.Error("failed to delete debt profile", "debt_profile_id", id, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundError(fmt.Sprintf("debt profile %s not found", id))
	}
	return nil
}

func (r *debtProfileRepository) insert(ctx context.Context, q queryer, d *entity.DebtProfile) error {
	_, err := q.ExecContext(ctx, r.db.rebind(`INSERT INTO debt_profiles (`+debtProfileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID.String(), d.ProposalID.String(), d.SNo, d.LoanApplicant, d.Bank, d.LoanType,
		nullFloat(d.LoanAmount), nullFloat(d.EMI), nullFloat(d.ROI), d.SanctionDate, nullInt(d.Tenure),
		d.EMIStartDate, d.EMIEndDate, d.MonthsCompleted, d.PercentTenureCompleted,
		nullFloat(d.CurrentOutstanding), d.EMIBankStatementProvided, d.EMIBankAccountNumber,
		r.db.ts(d.CreatedAt), r.db.ts(d.UpdatedAt))
	return err
}

func scanDebtProfile(s scanner) (*entity.DebtProfile, error) {
	var (
		d                      entity.DebtProfile
		id, proposalID         string
		amount, emi, roi, outs sql.NullFloat64
		tenure                 sql.NullInt64
		created, updated       string
	)
	err := s.Scan(&id, &proposalID, &d.SNo, &d.LoanApplicant, &d.Bank, &d.LoanType, &amount, &emi, &roi,
		&d.SanctionDate, &tenure, &d.EMIStartDate, &d.EMIEndDate, &d.MonthsCompleted, &d.PercentTenureCompleted,
		&outs, &d.EMIBankStatementProvided, &d.EMIBankAccountNumber, &created, &updated)
	if err != nil {
		return nil, err
	}
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("debt profile id: %w", err)
	}
	if d.ProposalID, err = uuid.Parse(proposalID); err != nil {
		return nil, fmt.Errorf("debt profile proposal id: %w", err)
	}
	d.LoanAmount = floatPtr(amount)
	d.EMI = floatPtr(emi)
	d.ROI = floatPtr(roi)
	d.CurrentOutstanding = floatPtr(outs)
	if tenure.Valid {
		n := int(tenure.Int64)
		d.Tenure = &n
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
