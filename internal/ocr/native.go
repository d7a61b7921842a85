package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/loan-intake/constants"
)

// NativeTier parses the PDF in-process. It is the baseline of the cascade and
// the only tier that reports ErrUnreadable.
type NativeTier struct {
	maxPages int
	logger   *slog.Logger
}

func NewNativeTier(maxPages int, logger *slog.Logger) *NativeTier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeTier{maxPages: maxPages, logger: logger}
}

func (t *NativeTier) Name() string { return constants.MethodNativePDF }

func (t *NativeTier) Attempt(ctx context.Context, path string) (res TierResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = TierResult{}
			err = fmt.Errorf("%w: pdf parser panic: %v", ErrUnreadable, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return TierResult{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			t.logger.Warn("close pdf", "path", path, "error", cerr)
		}
	}()

	n := r.NumPage()
	limit := n
	if t.maxPages > 0 && limit > t.maxPages {
		limit = t.maxPages
		res.Warnings = append(res.Warnings, fmt.Sprintf("page limit %d of %d", t.maxPages, n))
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return TierResult{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, rerr := p.GetTextByRow()
		if rerr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, rerr))
			continue
		}
		page := Page{Number: i}
		for _, row := range rows {
			frags := mergeRuns(row.Content)
			if len(frags) == 0 {
				continue
			}
			parts := make([]string, len(frags))
			for k, fr := range frags {
				parts[k] = fr.Text
			}
			page.Lines = append(page.Lines, Line{Text: strings.Join(parts, " "), Fragments: frags})
		}
		if b.Len() > 0 {
			b.WriteString("\n\f")
		}
		for k, ln := range page.Lines {
			if k > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(ln.Text)
		}
		res.Pages = append(res.Pages, page)
	}
	res.Text = b.String()
	res.NumPages = n
	return res, nil
}

// mergeRuns joins glyph runs into fragments. A horizontal gap wider than about
// one em starts a new fragment; a smaller gap becomes a space.
func mergeRuns(texts []pdf.Text) []Fragment {
	var (
		out    []Fragment
		cur    strings.Builder
		curX   float64
		curY   float64
		endX   float64
		active bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, Fragment{X: curX, Y: curY, Text: s})
		}
		cur.Reset()
		active = false
	}
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if active {
			gap := t.X - endX
			switch {
			case gap > math.Max(2.5, 0.9*size):
				flush()
			case gap > 0.15*size && !strings.HasSuffix(cur.String(), " ") && t.S != " ":
				cur.WriteByte(' ')
			}
		}
		if !active {
			curX, curY = t.X, t.Y
			active = true
		}
		cur.WriteString(t.S)
		endX = t.X + t.W
	}
	flush()
	return out
}
