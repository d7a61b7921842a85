package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestJSONEngine(t *testing.T) {
	tests := []struct {
		name      string
		runner    *fakeRunner
		wantText  string
		wantPages int
		wantErr   string
	}{
		{
			name:      "camel case page count",
			runner:    &fakeRunner{stdout: `{"success":true,"text":"hello","numPages":2,"totalChars":5,"method":"pymupdf"}`},
			wantText:  "hello",
			wantPages: 2,
		},
		{
			name:      "snake case page count",
			runner:    &fakeRunner{stdout: "\n{\"text\":\"page one\",\"num_pages\":7}\n"},
			wantText:  "page one",
			wantPages: 7,
		},
		{
			name:      "page count from form feeds",
			runner:    &fakeRunner{stdout: `{"success":true,"text":"a\fb\fc"}`},
			wantText:  "a\fb\fc",
			wantPages: 3,
		},
		{
			name:    "non-zero exit",
			runner:  &fakeRunner{stderr: "ModuleNotFoundError: fitz", err: errors.New("exit status 1")},
			wantErr: "exited",
		},
		{
			name:    "malformed output",
			runner:  &fakeRunner{stdout: "Traceback (most recent call last):"},
			wantErr: "malformed output",
		},
		{
			name:    "reported failure",
			runner:  &fakeRunner{stdout: `{"success":false,"error":"encrypted"}`},
			wantErr: "encrypted",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewJSONEngine("pymupdf", "python3", "scripts/extract_pdf_pymupdf.py", tt.runner, nil)
			res, err := e.Attempt(context.Background(), "/uploads/p/deed.pdf")

			require.Len(t, tt.runner.calls, 1)
			assert.Equal(t, []string{"python3", "scripts/extract_pdf_pymupdf.py", "/uploads/p/deed.pdf"}, tt.runner.calls[0])
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantPages, res.NumPages)
		})
	}
}

func TestPdftotextTierCountsPages(t *testing.T) {
	r := &fakeRunner{stdout: "page 1\fpage 2\f"}
	res, err := NewPdftotextTier("", r, nil).Attempt(context.Background(), "a.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, res.NumPages)
	assert.Equal(t, "pdftotext", r.calls[0][0])
	assert.Contains(t, r.calls[0], "-layout")
}

func TestNativeTierUnreadableFile(t *testing.T) {
	_, err := NewNativeTier(0, nil).Attempt(context.Background(), "/nonexistent/file.pdf")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtractorRejectsUnsupportedFormat(t *testing.T) {
	_, err := NewExtractor(Config{}, nil).Extract(context.Background(), "bundle.zip")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractorDefaultTierOrder(t *testing.T) {
	e := NewExtractor(Config{EnablePoppler: true}, nil)
	assert.Equal(t, []string{"pymupdf", "pdfplumber", "native-pdf", "pdftotext", "tesseract"}, e.PDFTiers())

	e = NewExtractor(Config{}, nil)
	assert.Equal(t, []string{"pymupdf", "pdfplumber", "native-pdf"}, e.PDFTiers())
}

func TestExtractorDetectsTablesFromPlainText(t *testing.T) {
	text := "PARTNERSHIP DEED\n\nName of Partner | Profit % | Loss %\nRamesh Kumar | 60% | 60%\nSuresh Rao | 40% | 40%\n\nWitnesses"
	e := NewExtractor(Config{}, nil, WithPDFTiers(ok("pymupdf", text, 1)))

	res, err := e.Extract(context.Background(), "deed.pdf")

	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Tables, 1)
	assert.Equal(t, "partnership-profit-loss", string(res.Tables[0].Type))
	assert.Len(t, res.Tables[0].Rows, 2)
	assert.Greater(t, res.Confidence, float32(0))
}

func TestExtractorImageChainPrefersInjectedTier(t *testing.T) {
	r := &fakeRunner{stdout: "tesseract text"}
	vision := ok("openai-vision-ocr", "vision text", 1)
	e := NewExtractor(Config{}, nil, WithRunner(r), WithImageTiers(vision))

	res, err := e.Extract(context.Background(), "scan.PNG")

	require.NoError(t, err)
	assert.Equal(t, "openai-vision-ocr", res.Method)
	assert.Equal(t, "vision text", res.Text)
	assert.Empty(t, r.calls)

	vision.err, vision.res = errors.New("no api key"), TierResult{}
	res, err = e.Extract(context.Background(), "scan.jpg")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", res.Method)
	assert.Equal(t, "tesseract text", res.Text)
}
