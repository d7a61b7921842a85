package openai

import (
	"context"

	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

var _ llm.DocumentClassifier = (*Client)(nil)

const classifyMaxTokens = 150

// ClassifyDocument implements llm.DocumentClassifier.
func (c *Client) ClassifyDocument(ctx context.Context, filename, text string, candidates []string) (string, error) {
	prompt := llm.ClassificationPrompt(filename, text, candidates)
	return c.complete(ctx, "classify", userMessage(prompt), classifyMaxTokens, c.cfg.DocumentTimeout)
}
