package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

type ProposalRepository interface {
	Create(ctx context.Context, p *entity.Proposal) (*entity.Proposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	List(ctx context.Context) ([]*entity.Proposal, error)
	AddDocuments(ctx context.Context, proposalID uuid.UUID, docs []entity.Document) ([]entity.Document, error)
	GetDocument(ctx context.Context, proposalID uuid.UUID, docID string) (*entity.Document, error)
	PatchDocument(ctx context.Context, proposalID uuid.UUID, docID string, patch entity.DocumentPatch) (*entity.Document, error)
	DeleteDocument(ctx context.Context, proposalID uuid.UUID, docID string) error
}

type proposalRepository struct {
	db     *DB
	locks  *keyedMutex
	now    func() time.Time
	logger *slog.Logger
}

func NewProposalRepository(db *DB, logger *slog.Logger) ProposalRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &proposalRepository{
		db:     db,
		locks:  newKeyedMutex(),
		now:    time.Now,
		logger: logger,
	}
}

const documentColumns = `id, proposal_id, filename, original_name, mime_type, size, content_hash,
	category, classification, auto_categorized, extracted_text, text_edited, pages,
	extracted_details, extraction_method, status, error, uploaded_at, processed_at`

func (r *proposalRepository) Create(ctx context.Context, p *entity.Proposal) (*entity.Proposal, error) {
	out := *p
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	now := r.now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	if out.CoApplicants == nil {
		out.CoApplicants = []entity.CoApplicant{}
	}
	out.Documents = []entity.Document{}

	co, err := json.Marshal(out.CoApplicants)
	if err != nil {
		return nil, fmt.Errorf("encode co-applicants: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.rebind(`INSERT INTO proposals
		(id, applicant_name, customer_name, applicant_type, co_applicants, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		out.ID.String(), out.ApplicantName, out.CustomerName, string(out.ApplicantType), string(co),
		r.db.ts(now), r.db.ts(now))
	if err != nil {
		r.logger.Error("failed to create proposal", "proposal_id", out.ID, "error", err)
		return nil, common.WrapError(err, "create proposal")
	}
	r.logger.Info("proposal created", "proposal_id", out.ID, "applicant_type", out.ApplicantType)
	return &out, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT id, applicant_name, customer_name, applicant_type,
		co_applicants, created_at, updated_at FROM proposals WHERE id = ?`), id.String())
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("proposal %s not found", id))
	}
	if err != nil {
		r.logger.Error("failed to get proposal", "proposal_id", id, "error", err)
		return nil, err
	}

	docs, err := r.listDocuments(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	p.Documents = docs
	return p, nil
}

// List returns proposals newest first, without their documents.
func (r *proposalRepository) List(ctx context.Context) ([]*entity.Proposal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, applicant_name, customer_name, applicant_type,
		co_applicants, created_at, updated_at FROM proposals ORDER BY created_at DESC, id`)
	if err != nil {
		r.logger.Error("failed to list proposals", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		p.Documents = []entity.Document{}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddDocuments inserts docs in one transaction. A document whose original
// name already exists on the proposal (or repeats within docs) fails the
// whole batch with a conflict.
func (r *proposalRepository) AddDocuments(ctx context.Context, proposalID uuid.UUID, docs []entity.Document) ([]entity.Document, error) {
	if len(docs) == 0 {
		return []entity.Document{}, nil
	}
	unlock := r.locks.Lock(proposalID.String())
	defer unlock()

	now := r.now().UTC()
	out := make([]entity.Document, len(docs))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.ensureProposal(ctx, tx, proposalID); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(docs))
		for i, d := range docs {
			if _, dup := seen[d.OriginalName]; dup {
				return common.ConflictError(fmt.Sprintf("file %q was uploaded twice", d.OriginalName))
			}
			seen[d.OriginalName] = struct{}{}

			var n int
			err := tx.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM documents
				WHERE proposal_id = ? AND original_name = ?`), proposalID.String(), d.OriginalName).Scan(&n)
			if err != nil {
				return err
			}
			if n > 0 {
				return common.ConflictError(fmt.Sprintf("file %q already exists in this proposal", d.OriginalName))
			}

			d.ProposalID = proposalID
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			if d.UploadedAt.IsZero() {
				d.UploadedAt = now
			}
			if d.Status == "" {
				d.Status = constants.JobStatusPending
			}
			if err := r.insertDocument(ctx, tx, &d); err != nil {
				return err
			}
			out[i] = d
		}
		return r.touch(ctx, tx, proposalID, now)
	})
	if err != nil {
		r.logger.Error("failed to add documents", "proposal_id", proposalID, "count", len(docs), "error", err)
		return nil, err
	}
	r.logger.Info("documents added", "proposal_id", proposalID, "count", len(out))
	return out, nil
}

func (r *proposalRepository) GetDocument(ctx context.Context, proposalID uuid.UUID, docID string) (*entity.Document, error) {
	return r.getDocument(ctx, r.db, proposalID, docID)
}

// PatchDocument applies patch to a single document. Concurrent patches of
// documents in the same proposal are serialized; sibling rows are never
// rewritten.
func (r *proposalRepository) PatchDocument(ctx context.Context, proposalID uuid.UUID, docID string, patch entity.DocumentPatch) (*entity.Document, error) {
	unlock := r.locks.Lock(proposalID.String())
	defer unlock()

	var out *entity.Document
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		d, err := r.getDocument(ctx, tx, proposalID, docID)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			out = d
			return nil
		}
		d.ApplyPatch(patch)

		details, err := encodeDetails(d.ExtractedDetails)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, r.db.rebind(`UPDATE documents SET
			category = ?, classification = ?, extracted_text = ?, text_edited = ?, pages = ?,
			extracted_details = ?, extraction_method = ?, status = ?, error = ?, processed_at = ?
			WHERE proposal_id = ? AND id = ?`),
			string(d.Category), d.Classification, d.ExtractedText, d.TextEdited, nullInt(d.Pages),
			details, d.ExtractionMethod, string(d.Status), d.Error, r.db.nullTS(d.ProcessedAt),
			proposalID.String(), d.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return common.NotFoundError(fmt.Sprintf("document %s not found", docID))
		}
		out = d
		return r.touch(ctx, tx, proposalID, r.now().UTC())
	})
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			r.logger.Error("failed to patch document", "proposal_id", proposalID, "document_id", docID, "error", err)
		}
		return nil, err
	}
	return out, nil
}

func (r *proposalRepository) DeleteDocument(ctx context.Context, proposalID uuid.UUID, docID string) error {
	unlock := r.locks.Lock(proposalID.String())
	defer unlock()

	res, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM documents
		WHERE proposal_id = ? AND (id = ? OR filename = ?)`), proposalID.String(), docID, docID)
	if err != nil {
		r.logger.Error("failed to delete document", "proposal_id", proposalID, "document_id", docID, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundError(fmt.Sprintf("document %s not found", docID))
	}
	return nil
}

func (r *proposalRepository) ensureProposal(ctx context.Context, q queryer, id uuid.UUID) error {
	var one int
	err := q.QueryRowContext(ctx, r.db.rebind(`SELECT 1 FROM proposals WHERE id = ?`), id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return common.NotFoundError(fmt.Sprintf("proposal %s not found", id))
	}
	return err
}

func (r *proposalRepository) touch(ctx context.Context, q queryer, id uuid.UUID, at time.Time) error {
	_, err := q.ExecContext(ctx, r.db.rebind(`UPDATE proposals SET updated_at = ? WHERE id = ?`), r.db.ts(at), id.String())
	return err
}

func (r *proposalRepository) insertDocument(ctx context.Context, q queryer, d *entity.Document) error {
	details, err := encodeDetails(d.ExtractedDetails)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, r.db.rebind(`INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID, d.ProposalID.String(), d.Filename, d.OriginalName, d.MimeType, d.Size, d.ContentHash,
		string(d.Category), d.Classification, d.AutoCategorized, d.ExtractedText, d.TextEdited, nullInt(d.Pages),
		details, d.ExtractionMethod, string(d.Status), d.Error, r.db.ts(d.UploadedAt), r.db.nullTS(d.ProcessedAt))
	return err
}

// getDocument resolves docID against the document id or its stored filename.
func (r *proposalRepository) getDocument(ctx context.Context, q queryer, proposalID uuid.UUID, docID string) (*entity.Document, error) {
	row := q.QueryRowContext(ctx, r.db.rebind(`SELECT `+documentColumns+` FROM documents
		WHERE proposal_id = ? AND (id = ? OR filename = ?)`), proposalID.String(), docID, docID)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("document %s not found", docID))
	}
	return d, err
}

func (r *proposalRepository) listDocuments(ctx context.Context, q queryer, proposalID uuid.UUID) ([]entity.Document, error) {
	rows, err := q.QueryContext(ctx, r.db.rebind(`SELECT `+documentColumns+` FROM documents
		WHERE proposal_id = ? ORDER BY uploaded_at, original_name`), proposalID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []entity.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(s scanner) (*entity.Proposal, error) {
	var (
		p                entity.Proposal
		id, typ, co      string
		created, updated string
	)
	if err := s.Scan(&id, &p.ApplicantName, &p.CustomerName, &typ, &co, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("proposal id: %w", err)
	}
	p.ApplicantType = constants.ApplicantType(typ)
	if strings.TrimSpace(co) != "" {
		if err := json.Unmarshal([]byte(co), &p.CoApplicants); err != nil {
			return nil, fmt.Errorf("decode co-applicants: %w", err)
		}
	}
	if p.CoApplicants == nil {
		p.CoApplicants = []entity.CoApplicant{}
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		d                  entity.Document
		proposalID         string
		category, status   string
		pages              sql.NullInt64
		details, processed sql.NullString
		uploaded           string
	)
	err := s.Scan(&d.ID, &proposalID, &d.Filename, &d.OriginalName, &d.MimeType, &d.Size, &d.ContentHash,
		&category, &d.Classification, &d.AutoCategorized, &d.ExtractedText, &d.TextEdited, &pages,
		&details, &d.ExtractionMethod, &status, &d.Error, &uploaded, &processed)
	if err != nil {
		return nil, err
	}
	if d.ProposalID, err = uuid.Parse(proposalID); err != nil {
		return nil, fmt.Errorf("document proposal id: %w", err)
	}
	d.Category = constants.Category(category)
	d.Status = constants.JobStatus(status)
	if pages.Valid {
		n := int(pages.Int64)
		d.Pages = &n
	}
	if details.Valid && details.String != "" {
		var ed entity.ExtractedDetails
		if err := json.Unmarshal([]byte(details.String), &ed); err != nil {
			return nil, fmt.Errorf("decode extracted details: %w", err)
		}
		d.ExtractedDetails = &ed
	}
	if d.UploadedAt, err = parseTime(uploaded); err != nil {
		return nil, err
	}
	if processed.Valid {
		t, err := parseTime(processed.String)
		if err != nil {
			return nil, err
		}
		d.ProcessedAt = &t
	}
	return &d, nil
}

func encodeDetails(d *entity.ExtractedDetails) (any, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode extracted details: %w", err)
	}
	return string(b), nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
