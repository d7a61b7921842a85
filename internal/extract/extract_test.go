package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

type fakeVision struct{ res llm.ImageTextResult }

func (f fakeVision) ExtractImageText(context.Context, string) llm.ImageTextResult { return f.res }

func TestVisionTier(t *testing.T) {
	ok := NewVisionTier(fakeVision{res: llm.ImageTextResult{Success: true, Text: "PAN"}})
	tr, err := ok.Attempt(context.Background(), "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "PAN", tr.Text)
	assert.Equal(t, 1, tr.NumPages)
	assert.Equal(t, constants.MethodVisionOCR, ok.Name())

	bad := NewVisionTier(fakeVision{res: llm.ImageTextResult{Error: "no key"}})
	_, err = bad.Attempt(context.Background(), "x.jpg")
	assert.EqualError(t, err, "no key")
}

func TestNewTextExtractor_TierOrder(t *testing.T) {
	cfg := common.DefaultConfig().OCR
	e := NewTextExtractor(cfg, nil, nil)
	assert.Equal(t, []string{constants.MethodPyMuPDF, constants.MethodPdfplumber, constants.MethodNativePDF}, e.PDFTiers())

	cfg.EnablePopplerTiers = true
	e = NewTextExtractor(cfg, fakeVision{}, nil)
	assert.Equal(t, []string{
		constants.MethodPyMuPDF, constants.MethodPdfplumber, constants.MethodNativePDF,
		constants.MethodPdftotext, constants.MethodTesseract,
	}, e.PDFTiers())
}
