package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// AllowedExt checks a file extension against the upload allow-list.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden reports dot files and macOS archive metadata.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || base == "__MACOSX"
}
