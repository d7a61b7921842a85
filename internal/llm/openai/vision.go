package openai

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

var _ llm.ImageTextExtractor = (*Client)(nil)

const visionMaxTokens = 4000

// ExtractImageText implements llm.ImageTextExtractor.
func (c *Client) ExtractImageText(ctx context.Context, path string) llm.ImageTextResult {
	res := llm.ImageTextResult{Method: constants.MethodVisionOCR}

	dataURL, err := llm.ReadImageDataURL(path)
	if err != nil {
		res.Err = fmt.Errorf("read image: %w", err)
		res.Error = res.Err.Error()
		return res
	}
	content := []map[string]any{
		{"type": "text", "text": llm.VisionPrompt()},
		{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
	}
	text, err := c.complete(ctx, "vision", userMessage(content), visionMaxTokens, c.cfg.VisionTimeout)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Text = text
	res.CharCount = len(text)
	return res
}
