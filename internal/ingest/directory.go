package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IngestDirectory walks root, skips hidden entries and disallowed types, and
// uploads each remaining file. One failing file does not stop the walk.
func (i *FSIngestor) IngestDirectory(ctx context.Context, proposalID uuid.UUID, root string) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, proposalID, path)
		switch {
		case err != nil:
			res.Err = err.Error()
			stats.Failed++
		case res.Duplicate:
			stats.Duplicates++
		default:
			stats.Succeeded++
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done",
		"proposal_id", proposalID,
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed)
	return results, stats, nil
}
