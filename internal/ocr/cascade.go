package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// ErrUnreadable marks a file that no parser could open at all. It is the only
// tier error callers have to treat as "document unprocessed".
var ErrUnreadable = errors.New("file unreadable")

// Fragment is one positioned run of text on a line.
type Fragment struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Line is a trimmed text line together with its positioned fragments.
type Line struct {
	Text      string     `json:"text"`
	Fragments []Fragment `json:"fragments"`
}

// Page holds the lines recovered from one page.
type Page struct {
	Number int    `json:"number"`
	Lines  []Line `json:"lines"`
}

// TierResult is what one extraction engine recovered.
type TierResult struct {
	Text     string
	NumPages int
	// Pages is set by engines that know fragment positions.
	Pages    []Page
	Warnings []string
}

// Tier is one ranked extraction strategy.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, path string) (TierResult, error)
}

// Result is the outcome of a cascade run.
type Result struct {
	Text     string        `json:"text"`
	NumPages int           `json:"numPages"`
	Method   string        `json:"method"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"-"`
	Pages    []Page        `json:"-"`
	// Err is set when the file could not be read by any tier.
	Err error `json:"-"`
}

// EmptyResult is the canonical result when every tier failed.
func EmptyResult() Result {
	return Result{Method: constants.MethodNone, Error: "all extraction methods failed"}
}

// Cascade runs tiers in order and keeps the first non-empty text.
type Cascade struct {
	tiers  []Tier
	logger *slog.Logger
}

func NewCascade(logger *slog.Logger, tiers ...Tier) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{tiers: tiers, logger: logger}
}

// Tiers returns the configured tier names in order.
func (c *Cascade) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name()
	}
	return names
}

// Extract never returns an error: exhaustion yields EmptyResult, with Err set
// if the file itself was unreadable.
func (c *Cascade) Extract(ctx context.Context, path string) Result {
	start := time.Now()
	var (
		hard     error
		warnings []string
	)
	for _, t := range c.tiers {
		if err := ctx.Err(); err != nil {
			hard = err
			break
		}
		tierStart := time.Now()
		tr, err := t.Attempt(ctx, path)
		if err != nil {
			c.logger.Warn("ocr.tier.failed", "tier", t.Name(), "path", path, "error", err,
				"elapsed_ms", time.Since(tierStart).Milliseconds())
			warnings = append(warnings, fmt.Sprintf("%s: %v", t.Name(), err))
			if errors.Is(err, ErrUnreadable) {
				hard = err
			}
			continue
		}
		if strings.TrimSpace(tr.Text) == "" {
			c.logger.Info("ocr.tier.empty", "tier", t.Name(), "path", path)
			warnings = append(warnings, t.Name()+": empty text")
			continue
		}
		c.logger.Info("ocr.tier.ok", "tier", t.Name(), "path", path, "pages", tr.NumPages,
			"chars", len(tr.Text), "elapsed_ms", time.Since(tierStart).Milliseconds())
		return Result{
			Text:     tr.Text,
			NumPages: tr.NumPages,
			Method:   t.Name(),
			Success:  true,
			Warnings: append(warnings, tr.Warnings...),
			Duration: time.Since(start),
			Pages:    tr.Pages,
		}
	}
	res := EmptyResult()
	res.Warnings = warnings
	res.Duration = time.Since(start)
	res.Err = hard
	c.logger.Warn("ocr.cascade.exhausted", "path", path, "tiers", len(c.tiers), "unreadable", hard != nil)
	return res
}
