package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/classify"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
	"github.com/joseph-ayodele/loan-intake/internal/storage"
)

// FileStore persists uploaded bytes.
type FileStore interface {
	Save(proposalID uuid.UUID, originalName string, r io.Reader) (storage.StoredFile, error)
	Remove(proposalID uuid.UUID, filename string) error
}

// Scheduler queues the background pass for a document.
type Scheduler interface {
	Schedule(ctx context.Context, proposalID uuid.UUID, docID string) error
}

// UploadFile is one file received from a client.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Intake accepts uploads and reviewer edits.
type Intake struct {
	proposals repository.ProposalRepository
	store     FileStore
	scheduler Scheduler
	logger    *slog.Logger
}

func NewIntake(proposals repository.ProposalRepository, store FileStore, scheduler Scheduler, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{proposals: proposals, store: store, scheduler: scheduler, logger: logger}
}

// SetScheduler wires the background queue after construction, since the
// queue itself depends on the processor.
func (i *Intake) SetScheduler(s Scheduler) { i.scheduler = s }

// scheduleTimeout bounds how long Upload waits for queue space.
const scheduleTimeout = time.Minute

// Upload validates and stores files, records them with a filename-only
// category guess, and schedules their background pass. Zip archives are
// expanded into their member files.
func (i *Intake) Upload(ctx context.Context, proposalID uuid.UUID, files []UploadFile) ([]entity.Document, error) {
	if len(files) == 0 {
		return nil, common.InvalidArgumentError("No files uploaded")
	}
	if len(files) > constants.MaxUploadFiles {
		return nil, common.InvalidArgumentErrorf("at most %d files can be uploaded at once", constants.MaxUploadFiles)
	}
	for _, f := range files {
		if !constants.IsAllowedExt(constants.ExtOf(f.Name)) {
			return nil, common.InvalidArgumentErrorf("File type not allowed: %s", f.Name)
		}
		if f.Size > constants.MaxUploadBytes {
			return nil, common.InvalidArgumentErrorf("File too large: %s", f.Name)
		}
	}

	prop, err := i.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var saved []pendingDoc
	cleanup := func() {
		for _, s := range saved {
			if err := i.store.Remove(proposalID, s.stored.Filename); err != nil {
				i.logger.Warn("intake.cleanup.failed", "proposal_id", proposalID, "filename", s.stored.Filename, "error", err)
			}
		}
	}
	for _, f := range files {
		docs, err := i.save(proposalID, f)
		saved = append(saved, docs...)
		if err != nil {
			cleanup()
			return nil, err
		}
	}

	var dups []string
	seen := make(map[string]bool, len(saved))
	for _, s := range saved {
		if prop.HasOriginalName(s.originalName) || seen[s.originalName] {
			dups = append(dups, s.originalName)
		}
		seen[s.originalName] = true
	}
	if len(dups) > 0 {
		cleanup()
		return nil, common.ConflictError(fmt.Sprintf("Duplicate files detected: %s. These documents have already been uploaded.", strings.Join(dups, ", ")))
	}

	docs := make([]entity.Document, len(saved))
	for n, s := range saved {
		cat := classify.AutoCategorize(s.originalName, "")
		docs[n] = entity.Document{
			Filename:        s.stored.Filename,
			OriginalName:    s.originalName,
			MimeType:        s.mimeType,
			Size:            s.stored.Size,
			ContentHash:     s.stored.HashHex,
			Category:        cat,
			AutoCategorized: cat != constants.Uncategorized,
			Status:          constants.JobStatusPending,
		}
	}
	added, err := i.proposals.AddDocuments(ctx, proposalID, docs)
	if err != nil {
		cleanup()
		return nil, err
	}

	// Documents are already recorded, so scheduling outlives the request.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scheduleTimeout)
	defer cancel()
	for _, d := range added {
		if i.scheduler == nil {
			break
		}
		if err := i.scheduler.Schedule(sctx, proposalID, d.ID); err != nil {
			i.logger.Error("intake.schedule.failed", "proposal_id", proposalID, "document_id", d.ID, "error", err)
		}
	}
	i.logger.Info("intake.upload.ok", "proposal_id", proposalID, "files", len(files), "documents", len(added))
	return added, nil
}

type pendingDoc struct {
	originalName string
	mimeType     string
	stored       storage.StoredFile
}

func (i *Intake) save(proposalID uuid.UUID, f UploadFile) ([]pendingDoc, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", f.Name, err)
	}
	defer rc.Close()

	if constants.ExtOf(f.Name) == "zip" {
		body, err := io.ReadAll(io.LimitReader(rc, constants.MaxUploadBytes+1))
		if err != nil {
			return nil, err
		}
		docs, err := i.expandZip(proposalID, body)
		if err == nil {
			return docs, nil
		}
		if len(docs) > 0 {
			return docs, err
		}
		i.logger.Warn("intake.zip.unreadable", "proposal_id", proposalID, "name", f.Name, "error", err)
		rc = io.NopCloser(bytes.NewReader(body))
	}

	stored, err := i.store.Save(proposalID, f.Name, rc)
	if err != nil {
		return nil, uploadError(f.Name, err)
	}
	mime := f.ContentType
	if mime == "" || mime == "application/octet-stream" {
		mime = constants.MimeTypeForExt(constants.ExtOf(f.Name))
	}
	return []pendingDoc{{originalName: f.Name, mimeType: mime, stored: stored}}, nil
}

// expandZip stores each regular member of an archive. Directories, macOS
// resource forks, dot files and disallowed types are skipped. Members stored
// before a failure are returned with the error so the caller can remove them.
func (i *Intake) expandZip(proposalID uuid.UUID, body []byte) ([]pendingDoc, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	var out []pendingDoc
	for _, zf := range zr.File {
		name := path.Base(zf.Name)
		if zf.FileInfo().IsDir() || strings.HasPrefix(zf.Name, "__MACOSX") || strings.HasPrefix(name, ".") {
			continue
		}
		if ext := constants.ExtOf(name); ext == "zip" || !constants.IsAllowedExt(ext) {
			i.logger.Debug("intake.zip.member_skipped", "proposal_id", proposalID, "name", zf.Name)
			continue
		}
		r, err := zf.Open()
		if err != nil {
			return out, err
		}
		stored, err := i.store.Save(proposalID, name, r)
		r.Close()
		if err != nil {
			return out, uploadError(name, err)
		}
		out = append(out, pendingDoc{originalName: name, mimeType: constants.MimeTypeForExt(constants.ExtOf(name)), stored: stored})
	}
	return out, nil
}

func uploadError(name string, err error) error {
	if errors.Is(err, storage.ErrTooLarge) {
		return common.InvalidArgumentErrorf("File too large: %s", name)
	}
	return fmt.Errorf("store %q: %w", name, err)
}

// Categorize files a document under cat. The classification is always
// cleared, since labels are only meaningful within a category.
func (i *Intake) Categorize(ctx context.Context, proposalID uuid.UUID, docID, category string) (*entity.Document, error) {
	cat, ok := constants.Canonicalize(category)
	if !ok {
		names := make([]string, 0, len(constants.Categories()))
		for _, c := range constants.Categories() {
			names = append(names, string(c))
		}
		return nil, common.InvalidArgumentErrorf("unknown category %q, expected one of: %s", category, strings.Join(names, ", "))
	}
	d, err := i.proposals.PatchDocument(ctx, proposalID, docID, entity.DocumentPatch{Category: &cat})
	if err != nil {
		return nil, err
	}
	i.logger.Info("intake.categorized", "proposal_id", proposalID, "document_id", d.ID, "category", cat)
	return d, nil
}

// SetClassification records a reviewer's sub-type label.
func (i *Intake) SetClassification(ctx context.Context, proposalID uuid.UUID, docID, label string) (*entity.Document, error) {
	label = strings.TrimSpace(label)
	if err := common.ValidateAndReturnError(common.NewValidator().Field("classification", label, common.MaxLen(200))); err != nil {
		return nil, err
	}
	return i.proposals.PatchDocument(ctx, proposalID, docID, entity.DocumentPatch{Classification: &label})
}

// EditText stores reviewer-corrected text and marks it as edited.
func (i *Intake) EditText(ctx context.Context, proposalID uuid.UUID, docID, text string) (*entity.Document, error) {
	return i.proposals.PatchDocument(ctx, proposalID, docID, entity.DocumentPatch{
		ExtractedText: &text,
		TextEdited:    entity.Ptr(true),
	})
}

// DeleteDocument removes the record and then the stored file.
func (i *Intake) DeleteDocument(ctx context.Context, proposalID uuid.UUID, docID string) error {
	d, err := i.proposals.GetDocument(ctx, proposalID, docID)
	if err != nil {
		return err
	}
	if err := i.proposals.DeleteDocument(ctx, proposalID, d.ID); err != nil {
		return err
	}
	if err := i.store.Remove(proposalID, d.Filename); err != nil {
		i.logger.Warn("intake.delete.file_failed", "proposal_id", proposalID, "filename", d.Filename, "error", err)
	}
	return nil
}
