package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/core"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

// Uploader is the intake entry point files are handed to.
type Uploader interface {
	Upload(ctx context.Context, proposalID uuid.UUID, files []core.UploadFile) ([]entity.Document, error)
}

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	// Documents lists the created document ids; a zip yields several.
	Documents []string
	Duplicate bool
	Err       string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Succeeded  uint32
	Duplicates uint32
	Failed     uint32
}

// FSIngestor feeds files from the local filesystem through intake.
type FSIngestor struct {
	intake Uploader
	logger *slog.Logger
}

func NewFSIngestor(intake Uploader, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{intake: intake, logger: logger}
}

// IngestPath uploads one file. A file whose name is already on the proposal
// is reported as a duplicate, not an error.
func (i *FSIngestor) IngestPath(ctx context.Context, proposalID uuid.UUID, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.ExtOf(abs)
	if ext == "" || !AllowedExt(ext) {
		return out, common.InvalidArgumentErrorf("unsupported or missing extension: %q", ext)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return out, fmt.Errorf("stat: %w", err)
	}

	docs, err := i.intake.Upload(ctx, proposalID, []core.UploadFile{{
		Name: filepath.Base(abs),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(abs) },
	}})
	if errors.Is(err, common.ErrConflict) {
		out.Duplicate = true
		i.logger.Info("ingest.path.duplicate", "proposal_id", proposalID, "path", abs)
		return out, nil
	}
	if err != nil {
		i.logger.Error("ingest.path.failed", "proposal_id", proposalID, "path", abs, "error", err)
		return out, err
	}
	for _, d := range docs {
		out.Documents = append(out.Documents, d.ID)
	}
	i.logger.Info("ingest.path.ok", "proposal_id", proposalID, "path", abs, "documents", len(docs))
	return out, nil
}
