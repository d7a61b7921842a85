package openai

import (
	"context"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

var _ llm.DocumentExtractor = (*Client)(nil)

// ExtractDocument implements llm.DocumentExtractor.
func (c *Client) ExtractDocument(ctx context.Context, target llm.Target, text string, tables []entity.ExtractedTable) llm.DocumentResult {
	op := "document." + string(target.Kind())
	res := llm.DocumentResult{Target: target.Kind(), Method: constants.MethodDocumentAI}
	fail := func(err error) llm.DocumentResult {
		res.Err = err
		res.Error = err.Error()
		return res
	}

	content, err := c.complete(ctx, op, userMessage(target.Prompt(text, tables)), target.MaxTokens(), c.cfg.DocumentTimeout)
	if err != nil {
		return fail(err)
	}

	obj, ok := llm.ExtractJSONObject(content)
	if !ok {
		c.logger.Error("llm.extract.no_json", "target", target.Kind(), "content", truncate(content, 500))
		return fail(&llm.AIError{Kind: llm.KindParse, Op: op, Message: llm.ErrNoJSON.Error(), Cause: llm.ErrNoJSON})
	}
	checked, err := llm.CheckTargetJSON(target, obj, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.schema_validation_failed", "target", target.Kind(), "error", err)
		return fail(&llm.AIError{Kind: llm.KindParse, Op: op, Message: "response does not match schema", Cause: err})
	}
	data, err := target.Decode(checked)
	if err != nil {
		return fail(&llm.AIError{Kind: llm.KindParse, Op: op, Message: "decode response", Cause: err})
	}

	c.logger.Info("llm.extract.ok", "target", target.Kind(), "usable", target.Usable(data))
	res.Success = true
	res.Data = data
	res.Raw = checked
	return res
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
