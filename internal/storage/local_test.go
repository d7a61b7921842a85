package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndOpen(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	pid := uuid.New()

	body := []byte("%PDF-1.4 deed")
	got, err := s.Save(pid, "../../Partnership Deed.PDF", bytes.NewReader(body))
	require.NoError(t, err)

	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), got.HashHex)
	assert.Equal(t, int64(len(body)), got.Size)
	assert.True(t, strings.HasPrefix(got.Filename, "documents-"))
	assert.True(t, strings.HasSuffix(got.Filename, ".pdf"))
	assert.NotContains(t, got.Filename, "/")
	assert.Equal(t, got.Path, s.Path(pid, got.Filename))

	f, err := s.Open(pid, got.Filename)
	require.NoError(t, err)
	defer f.Close()
	read, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, body, read)

	require.NoError(t, s.Remove(pid, got.Filename))
	require.NoError(t, s.Remove(pid, got.Filename))
	_, err = os.Stat(got.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_TooLarge(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	s.MaxBytes = 4

	_, err = s.Save(uuid.New(), "big.png", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLocalStore_PathRejectsTraversal(t *testing.T) {
	s := &LocalStore{Root: "/srv/uploads"}
	pid := uuid.New()
	assert.Empty(t, s.Path(pid, "../secret"))
	assert.Empty(t, s.Path(pid, ""))
	assert.Equal(t, "/srv/uploads/"+pid.String()+"/a.pdf", s.Path(pid, "a.pdf"))
}

func TestStoredName(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	assert.Regexp(t, `^documents-1700000000000-\d+\.xlsx$`, storedName("Debt Profile.xlsx", now))
	assert.Regexp(t, `^documents-1700000000000-\d+$`, storedName("payload.exe", now))
}
