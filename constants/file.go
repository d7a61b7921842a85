package constants

import (
	"path/filepath"
	"strings"
)

// FileFormat is the processing family of an uploaded file.
type FileFormat string

const (
	FormatPDF         FileFormat = "PDF"
	FormatImage       FileFormat = "IMAGE"
	FormatSpreadsheet FileFormat = "SPREADSHEET"
	FormatOther       FileFormat = "OTHER"
)

// AllowedExtensions holds the file extensions accepted at upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"xls":  {},
	"xlsx": {},
	"zip":  {},
}

const (
	MaxUploadBytes = 20 << 20
	MaxUploadFiles = 10
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ExtOf returns the normalized extension of a file name.
func ExtOf(name string) string {
	return NormalizeExt(filepath.Ext(name))
}

func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return FormatPDF
	case "jpg", "jpeg", "png":
		return FormatImage
	case "xls", "xlsx":
		return FormatSpreadsheet
	default:
		return FormatOther
	}
}

// MimeTypeForExt is used when an upload arrives without a content type.
func MimeTypeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "xls":
		return "application/vnd.ms-excel"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
