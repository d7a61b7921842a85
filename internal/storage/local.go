package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// ErrTooLarge is returned when an upload exceeds the store's size limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// StoredFile describes a file written by Save.
type StoredFile struct {
	Filename string
	Path     string
	HashHex  string
	Size     int64
}

// LocalStore keeps uploads under Root/<proposal id>/.
type LocalStore struct {
	Root     string
	MaxBytes int64
	logger   *slog.Logger
}

func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{Root: abs, MaxBytes: constants.MaxUploadBytes, logger: logger}, nil
}

// Save copies r into a new file named after originalName and hashes it on
// the way. The stored name never contains path separators.
func (s *LocalStore) Save(proposalID uuid.UUID, originalName string, r io.Reader) (StoredFile, error) {
	dir := filepath.Join(s.Root, proposalID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, err
	}

	name := storedName(originalName, time.Now())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, err
	}

	h := sha256.New()
	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(f, h), src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.MaxBytes > 0 && n > s.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		s.logger.Warn("storage.save.failed", "proposal_id", proposalID, "name", originalName, "error", err)
		return StoredFile{}, err
	}

	s.logger.Debug("storage.save.ok", "proposal_id", proposalID, "filename", name, "size", n)
	return StoredFile{
		Filename: name,
		Path:     path,
		HashHex:  hex.EncodeToString(h.Sum(nil)),
		Size:     n,
	}, nil
}

// Path resolves a stored filename. Names that try to leave the proposal
// directory resolve to an empty path.
func (s *LocalStore) Path(proposalID uuid.UUID, filename string) string {
	if filename == "" || filename != filepath.Base(filename) || filename == ".." {
		return ""
	}
	return filepath.Join(s.Root, proposalID.String(), filename)
}

func (s *LocalStore) Open(proposalID uuid.UUID, filename string) (*os.File, error) {
	p := s.Path(proposalID, filename)
	if p == "" {
		return nil, fmt.Errorf("invalid stored filename %q", filename)
	}
	return os.Open(p)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *LocalStore) Remove(proposalID uuid.UUID, filename string) error {
	p := s.Path(proposalID, filename)
	if p == "" {
		return fmt.Errorf("invalid stored filename %q", filename)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// storedName builds "documents-<millis>-<rand><ext>" from the upload name.
func storedName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext != "" && !constants.IsAllowedExt(ext) {
		ext = ""
	}
	return fmt.Sprintf("documents-%d-%d%s", now.UnixMilli(), rand.IntN(1e9), ext)
}
