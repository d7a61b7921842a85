package extract

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/ocr"
)

// VisionTier runs a hosted vision model as the first image cascade tier.
type VisionTier struct {
	vision llm.ImageTextExtractor
}

func NewVisionTier(v llm.ImageTextExtractor) *VisionTier { return &VisionTier{vision: v} }

func (t *VisionTier) Name() string { return constants.MethodVisionOCR }

func (t *VisionTier) Attempt(ctx context.Context, path string) (ocr.TierResult, error) {
	res := t.vision.ExtractImageText(ctx, path)
	if !res.Success {
		if res.Err != nil {
			return ocr.TierResult{}, res.Err
		}
		return ocr.TierResult{}, errors.New(res.Error)
	}
	return ocr.TierResult{Text: res.Text, NumPages: 1}, nil
}
