package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/metrics"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat completion under the retry policy and returns the
// first choice's content. Failures are *llm.AIError.
func (c *Client) complete(ctx context.Context, op string, messages []map[string]any, maxTokens int, timeout time.Duration) (string, error) {
	if !c.Enabled() {
		metrics.AIRequests.WithLabelValues(op, string(llm.KindDisabled)).Inc()
		return "", &llm.AIError{Kind: llm.KindDisabled, Op: op, Message: "AI API key not configured"}
	}

	rid := uuid.New().String()
	start := time.Now()
	body := map[string]any{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": c.cfg.Temperature,
		"max_tokens":  maxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}
	if c.cfg.Referer != "" {
		headers["HTTP-Referer"] = c.cfg.Referer
	}
	if c.cfg.Title != "" {
		headers["X-Title"] = c.cfg.Title
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	policy := c.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.AIRetries.WithLabelValues(op).Inc()
		c.logger.Warn("llm.chat.rate_limited",
			"req_id", rid, "op", op, "attempt", attempt,
			"retry_in_ms", delay.Milliseconds(), "error", err)
	}

	c.logger.Info("llm.chat.start", "req_id", rid, "op", op, "model", c.cfg.Model, "max_tokens", maxTokens)

	content, err := llm.Retry(ctx, policy, func(ctx context.Context, attempt int) (string, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		raw, _, err := llm.SendJSON(actx, c.http, endpoint, body, headers, c.logger)
		if err != nil {
			return "", err
		}
		var cc chatResponse
		if err := json.Unmarshal(raw, &cc); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		if len(cc.Choices) == 0 {
			return "", errors.New("no choices in chat response")
		}
		return strings.TrimSpace(cc.Choices[0].Message.Content), nil
	})
	if err != nil {
		aerr := &llm.AIError{Kind: llm.KindTerminal, Op: op, Message: err.Error(), Cause: err}
		if llm.IsRateLimited(err) {
			aerr.Kind = llm.KindRateLimited
			aerr.Message = llm.RateLimitMessage
		}
		metrics.AIRequests.WithLabelValues(op, string(aerr.Kind)).Inc()
		c.logger.Error("llm.chat.failed",
			"req_id", rid, "op", op, "kind", aerr.Kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", aerr
	}

	metrics.AIRequests.WithLabelValues(op, "ok").Inc()
	c.logger.Info("llm.chat.ok",
		"req_id", rid, "op", op, "chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

func userMessage(content any) []map[string]any {
	return []map[string]any{{"role": "user", "content": content}}
}
