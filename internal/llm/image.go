package llm

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
)

// ImageMimeType maps .png to image/png and everything else to image/jpeg.
func ImageMimeType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// ReadImageDataURL inlines an image file as a base64 data URL.
func ReadImageDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:" + ImageMimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
