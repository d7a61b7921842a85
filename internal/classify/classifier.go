package classify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

// MinAITextLen is the recovered-text length above which the model is asked
// when the rules give no answer.
const MinAITextLen = 50

const partialMatchPrefix = 20

// Classifier assigns a sub-type label within a category.
type Classifier struct {
	ai     llm.DocumentClassifier
	logger *slog.Logger
}

// NewClassifier returns a rules-only classifier when ai is nil.
func NewClassifier(ai llm.DocumentClassifier, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{ai: ai, logger: logger}
}

// Classify never fails: every error, panic included, yields "".
func (c *Classifier) Classify(ctx context.Context, filename, text string, cat constants.Category, p *entity.Proposal) (label string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classify.panic", "filename", filename, "category", cat, "panic", fmt.Sprint(r))
			label = ""
		}
	}()

	candidates := Candidates(cat, p)
	if len(candidates) == 0 {
		return ""
	}
	if label := MatchRules(filename, text, cat, candidates); label != "" {
		c.logger.Debug("classify.rules", "filename", filename, "label", label)
		return label
	}
	if c.ai == nil || len(text) <= MinAITextLen {
		return ""
	}

	answer, err := c.ai.ClassifyDocument(ctx, filename, text, candidates)
	if err != nil {
		c.logger.Warn("classify.ai.failed", "filename", filename, "kind", llm.KindOf(err), "error", err)
		return ""
	}
	label = MatchAnswer(answer, candidates)
	c.logger.Info("classify.ai", "filename", filename, "answer", answer, "label", label)
	return label
}

// MatchAnswer maps a model answer onto a candidate: an exact match first,
// then any candidate whose first 20 characters appear in the answer.
func MatchAnswer(answer string, candidates []string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" || answer == "UNKNOWN" {
		return ""
	}
	if slices.Contains(candidates, answer) {
		return answer
	}
	lower := strings.ToLower(answer)
	for _, c := range candidates {
		prefix := strings.ToLower(c)
		if len(prefix) > partialMatchPrefix {
			prefix = prefix[:partialMatchPrefix]
		}
		if strings.Contains(lower, prefix) {
			return c
		}
	}
	return ""
}
