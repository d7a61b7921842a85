package core

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
	"github.com/joseph-ayodele/loan-intake/internal/llm"
	"github.com/joseph-ayodele/loan-intake/internal/ocr"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
	"github.com/joseph-ayodele/loan-intake/internal/storage"
)

type fakeText struct {
	fn func(path string) (ocr.ExtractionResult, error)
}

func (f fakeText) Extract(_ context.Context, path string) (ocr.ExtractionResult, error) {
	return f.fn(path)
}

func textResult(text string, pages int) func(string) (ocr.ExtractionResult, error) {
	return func(path string) (ocr.ExtractionResult, error) {
		if constants.MapExtToFormat(constants.ExtOf(path)) != constants.FormatPDF &&
			constants.MapExtToFormat(constants.ExtOf(path)) != constants.FormatImage {
			return ocr.ExtractionResult{}, fmt.Errorf("%w: %q", ocr.ErrUnsupportedFormat, constants.ExtOf(path))
		}
		return ocr.ExtractionResult{Result: ocr.Result{
			Text: text, NumPages: pages, Method: constants.MethodPyMuPDF, Success: true,
		}}, nil
	}
}

type fakeClassifier struct{ label string }

func (f fakeClassifier) Classify(context.Context, string, string, constants.Category, *entity.Proposal) string {
	return f.label
}

type fakeDocAI struct {
	res   llm.DocumentResult
	calls int
}

func (f *fakeDocAI) ExtractDocument(context.Context, llm.Target, string, []entity.ExtractedTable) llm.DocumentResult {
	f.calls++
	return f.res
}

type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingScheduler) Schedule(_ context.Context, _ uuid.UUID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, docID)
	return nil
}

type fixture struct {
	proposals repository.ProposalRepository
	store     *storage.LocalStore
	intake    *Intake
	sched     *recordingScheduler
	prop      *entity.Proposal
}

func newFixture(t *testing.T, applicant constants.ApplicantType) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close(nil) })

	store, err := storage.NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	proposals := repository.NewProposalRepository(db, nil)
	prop, err := proposals.Create(ctx, &entity.Proposal{
		ApplicantName: "Sri Lakshmi Traders",
		ApplicantType: applicant,
	})
	require.NoError(t, err)

	sched := &recordingScheduler{}
	return &fixture{
		proposals: proposals,
		store:     store,
		intake:    NewIntake(proposals, store, sched, nil),
		sched:     sched,
		prop:      prop,
	}
}

func (f *fixture) processor(text TextExtractor, ai llm.DocumentExtractor, opts Options) *Processor {
	return NewProcessor(nil, text, fakeClassifier{label: "Sri Lakshmi Traders - PAN Card"}, ai, f.proposals, f.store, opts)
}

func upload(name, body string) UploadFile {
	return UploadFile{
		Name: name,
		Size: int64(len(body)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func (f *fixture) uploadOne(t *testing.T, name string) entity.Document {
	t.Helper()
	docs, err := f.intake.Upload(context.Background(), f.prop.ID, []UploadFile{upload(name, "%PDF-1.4 body")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func (f *fixture) doc(t *testing.T, id string) *entity.Document {
	t.Helper()
	d, err := f.proposals.GetDocument(context.Background(), f.prop.ID, id)
	require.NoError(t, err)
	return d
}

func TestIntake_Upload(t *testing.T) {
	f := newFixture(t, constants.ApplicantPartnership)
	ctx := context.Background()

	docs, err := f.intake.Upload(ctx, f.prop.ID, []UploadFile{
		upload("PAN Card.pdf", "pan"),
		upload("bank statement.pdf", "bank"),
		upload("scan.jpg", "jpg"),
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	byName := map[string]entity.Document{}
	for _, d := range docs {
		byName[d.OriginalName] = d
		assert.Equal(t, constants.JobStatusPending, d.Status)
		assert.NotEmpty(t, d.ContentHash)
		assert.NotEqual(t, d.OriginalName, d.Filename)
	}
	assert.Equal(t, constants.PersonalID, byName["PAN Card.pdf"].Category)
	assert.True(t, byName["PAN Card.pdf"].AutoCategorized)
	assert.Equal(t, constants.Banking, byName["bank statement.pdf"].Category)
	assert.Equal(t, constants.Uncategorized, byName["scan.jpg"].Category)
	assert.False(t, byName["scan.jpg"].AutoCategorized)
	assert.Equal(t, "image/jpeg", byName["scan.jpg"].MimeType)
	assert.Len(t, f.sched.ids, 3)

	_, err = f.intake.Upload(ctx, f.prop.ID, []UploadFile{upload("PAN Card.pdf", "again"), upload("new.pdf", "x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Contains(t, err.Error(), "Duplicate files detected: PAN Card.pdf. These documents have already been uploaded.")

	got, err := f.proposals.GetByID(ctx, f.prop.ID)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 3)
}

func TestIntake_UploadRejects(t *testing.T) {
	f := newFixture(t, constants.ApplicantPartnership)
	ctx := context.Background()

	tooMany := make([]UploadFile, constants.MaxUploadFiles+1)
	for i := range tooMany {
		tooMany[i] = upload(fmt.Sprintf("f%d.pdf", i), "x")
	}

	tests := []struct {
		name  string
		files []UploadFile
	}{
		{"none", nil},
		{"too many", tooMany},
		{"bad extension", []UploadFile{upload("run.exe", "x")}},
		{"too large", []UploadFile{{Name: "big.pdf", Size: constants.MaxUploadBytes + 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.intake.Upload(ctx, f.prop.ID, tt.files)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}

	_, err := f.intake.Upload(ctx, uuid.New(), []UploadFile{upload("a.pdf", "x")})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIntake_UploadExpandsZip(t *testing.T) {
	f := newFixture(t, constants.ApplicantPartnership)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"docs/GST Certificate.pdf":  "gst",
		"docs/photo.png":            "png",
		"__MACOSX/docs/._photo.png": "fork",
		"docs/.DS_Store":            "junk",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	_, err := zw.Create("docs/empty/")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	body := buf.String()
	docs, err := f.intake.Upload(context.Background(), f.prop.ID, []UploadFile{upload("bundle.zip", body)})
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.OriginalName)
	}
	assert.ElementsMatch(t, []string{"GST Certificate.pdf", "photo.png"}, names)
}

func TestIntake_CategorizeAndEdits(t *testing.T) {
	f := newFixture(t, constants.ApplicantPartnership)
	ctx := context.Background()
	d := f.uploadOne(t, "statement.pdf")

	got, err := f.intake.SetClassification(ctx, f.prop.ID, d.ID, "  HDFC Current Account ")
	require.NoError(t, err)
	assert.Equal(t, "HDFC Current Account", got.Classification)

	got, err = f.intake.Categorize(ctx, f.prop.ID, d.ID, "Banking")
	require.NoError(t, err)
	assert.Equal(t, constants.Banking, got.Category)
	assert.Empty(t, got.Classification)

	_, err = f.intake.Categorize(ctx, f.prop.ID, d.ID, "recipes")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "personalId, businessId")

	got, err = f.intake.EditText(ctx, f.prop.ID, d.ID, "corrected text")
	require.NoError(t, err)
	assert.Equal(t, "corrected text", got.ExtractedText)
	assert.True(t, got.TextEdited)

	require.NoError(t, f.intake.DeleteDocument(ctx, f.prop.ID, d.Filename))
	_, err = f.proposals.GetDocument(ctx, f.prop.ID, d.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoFileExists(t, f.store.Path(f.prop.ID, d.Filename))
}

func TestProcessDocument_TextRetention(t *testing.T) {
	long := strings.Repeat("ab", 400)

	tests := []struct {
		name     string
		file     string
		wantLen  int
		wantKind entity.DetailsKind
	}{
		{"identity keeps prefix", "PAN Card.pdf", 500, ""},
		{"banking keeps prefix", "bank statement.pdf", 500, entity.DetailsBankStatement},
		{"financials keeps full text", "balance sheet.pdf", 800, entity.DetailsFinancialComponents},
		{"turnover keeps full text", "gstr-3b.pdf", 800, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, constants.ApplicantPartnership)
			d := f.uploadOne(t, tt.file)
			p := f.processor(fakeText{fn: textResult(long, 3)}, nil, Options{})

			require.NoError(t, p.ProcessDocument(context.Background(), f.prop.ID, d.ID))

			got := f.doc(t, d.ID)
			assert.Equal(t, constants.JobStatusDone, got.Status)
			assert.Len(t, got.ExtractedText, tt.wantLen)
			require.NotNil(t, got.Pages)
			assert.Equal(t, 3, *got.Pages)
			assert.Equal(t, constants.MethodPyMuPDF, got.ExtractionMethod)
			assert.NotNil(t, got.ProcessedAt)
			assert.Equal(t, "Sri Lakshmi Traders - PAN Card", got.Classification)
			if tt.wantKind == "" {
				assert.Nil(t, got.ExtractedDetails)
			} else {
				require.NotNil(t, got.ExtractedDetails)
				assert.Equal(t, tt.wantKind, got.ExtractedDetails.Kind)
				assert.Equal(t, constants.MethodRegex, got.ExtractedDetails.Source)
			}
		})
	}
}

func TestProcessDocument_Statuses(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported format is skipped", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "debt profile.xlsx")
		p := f.processor(fakeText{fn: textResult("unused", 1)}, nil, Options{})

		require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))
		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusSkipped, got.Status)
		assert.Empty(t, got.ExtractedText)
		assert.Nil(t, got.Pages)
	})

	t.Run("unreadable file fails", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		p := f.processor(fakeText{fn: func(string) (ocr.ExtractionResult, error) {
			res := ocr.EmptyResult()
			res.Err = ocr.ErrUnreadable
			return ocr.ExtractionResult{Result: res}, nil
		}}, nil, Options{})

		assert.ErrorIs(t, p.ProcessDocument(ctx, f.prop.ID, d.ID), ocr.ErrUnreadable)
		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusFailed, got.Status)
		assert.Empty(t, got.ExtractedText)
		assert.Nil(t, got.Pages)
		assert.Nil(t, got.ExtractedDetails)
		assert.NotEmpty(t, got.Error)
	})

	t.Run("exhausted cascade is done with no text", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "scan.pdf")
		p := f.processor(fakeText{fn: func(string) (ocr.ExtractionResult, error) {
			return ocr.ExtractionResult{Result: ocr.EmptyResult()}, nil
		}}, nil, Options{})

		require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))
		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusDone, got.Status)
		assert.Equal(t, constants.MethodNone, got.ExtractionMethod)
		assert.Empty(t, got.ExtractedText)
		assert.Empty(t, got.Classification)
	})

	t.Run("panic marks the document failed", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		p := f.processor(fakeText{fn: func(string) (ocr.ExtractionResult, error) { panic("boom") }}, nil, Options{})

		require.Error(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))
		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusFailed, got.Status)
		assert.Contains(t, got.Error, "boom")
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		p := f.processor(fakeText{fn: textResult("x", 1)}, nil, Options{})
		assert.ErrorIs(t, p.ProcessDocument(ctx, f.prop.ID, "missing"), common.ErrNotFound)
	})
}

func TestProcessDocument_EditedTextIsKept(t *testing.T) {
	ctx := context.Background()
	for _, overwrite := range []bool{false, true} {
		t.Run(fmt.Sprintf("overwrite=%v", overwrite), func(t *testing.T) {
			f := newFixture(t, constants.ApplicantPartnership)
			d := f.uploadOne(t, "bank statement.pdf")
			_, err := f.intake.EditText(ctx, f.prop.ID, d.ID, "reviewer text")
			require.NoError(t, err)

			p := f.processor(fakeText{fn: textResult("machine text", 1)}, nil, Options{OverwriteEditedText: overwrite})
			require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))

			got := f.doc(t, d.ID)
			if overwrite {
				assert.Equal(t, "machine text", got.ExtractedText)
				assert.False(t, got.TextEdited)
			} else {
				assert.Equal(t, "reviewer text", got.ExtractedText)
				assert.True(t, got.TextEdited)
			}
			assert.Equal(t, constants.JobStatusDone, got.Status)
		})
	}
}

func TestProcessDocument_DocumentAI(t *testing.T) {
	ctx := context.Background()
	date := "01/04/2019"
	sixty := 60.0

	tests := []struct {
		name       string
		enabled    bool
		res        llm.DocumentResult
		wantSource string
		wantCalls  int
	}{
		{
			name:    "ai result wins",
			enabled: true,
			res: llm.DocumentResult{Success: true, Target: llm.TargetPartnershipDeed, Data: &llm.PartnershipDeedData{
				DateOfExecution: &date,
				Partners:        []llm.DeedShare{{Name: "Ravi Kumar", ProfitPercentage: &sixty}},
			}},
			wantSource: constants.MethodDocumentAI,
			wantCalls:  1,
		},
		{
			name:       "ai failure falls back to regex",
			enabled:    true,
			res:        llm.DocumentResult{Success: false, Error: "rate limited"},
			wantSource: constants.MethodRegex,
			wantCalls:  1,
		},
		{
			name:       "empty ai result falls back to regex",
			enabled:    true,
			res:        llm.DocumentResult{Success: true, Target: llm.TargetPartnershipDeed, Data: &llm.PartnershipDeedData{}},
			wantSource: constants.MethodRegex,
			wantCalls:  1,
		},
		{
			name:       "disabled never calls the model",
			enabled:    false,
			wantSource: constants.MethodRegex,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, constants.ApplicantPartnership)
			d := f.uploadOne(t, "partnership deed.pdf")
			require.Equal(t, constants.Incorporation, d.Category)
			ai := &fakeDocAI{res: tt.res}
			p := f.processor(fakeText{fn: textResult("THIS DEED OF PARTNERSHIP is made on 01/04/2019", 2)}, ai, Options{EnableDocumentAI: tt.enabled})

			require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))
			got := f.doc(t, d.ID)
			require.NotNil(t, got.ExtractedDetails)
			assert.Equal(t, entity.DetailsPartnershipDeed, got.ExtractedDetails.Kind)
			assert.Equal(t, tt.wantSource, got.ExtractedDetails.Source)
			assert.Equal(t, tt.wantCalls, ai.calls)
			if tt.wantSource == constants.MethodDocumentAI {
				require.Len(t, got.ExtractedDetails.Partnership.Partners, 1)
				partner := got.ExtractedDetails.Partnership.Partners[0]
				assert.Equal(t, "Ravi Kumar", partner.Name)
				assert.Equal(t, "60", partner.ProfitPercent.String())
				assert.Equal(t, entity.PercentNotSpecified, partner.LossPercent.String())
			}
		})
	}
}

func TestProcessDocument_CompanyIncorporationSkipsAI(t *testing.T) {
	f := newFixture(t, constants.ApplicantPrivateLimited)
	d := f.uploadOne(t, "certificate of incorporation.pdf")
	require.Equal(t, constants.Incorporation, d.Category)
	ai := &fakeDocAI{}
	p := f.processor(fakeText{fn: textResult("Certificate of Incorporation", 1)}, ai, Options{EnableDocumentAI: true})

	require.NoError(t, p.ProcessDocument(context.Background(), f.prop.ID, d.ID))
	got := f.doc(t, d.ID)
	require.NotNil(t, got.ExtractedDetails)
	assert.Equal(t, entity.DetailsCompany, got.ExtractedDetails.Kind)
	assert.Zero(t, ai.calls)
}

func TestReprocess(t *testing.T) {
	ctx := context.Background()

	t.Run("no documents", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		p := f.processor(fakeText{fn: textResult("x", 1)}, nil, Options{})
		_, err := p.Reprocess(ctx, f.prop.ID, constants.Banking)
		require.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Contains(t, err.Error(), "No documents found")
	})

	t.Run("turnover without pdfs", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		f.uploadOne(t, "bank statement.pdf")
		p := f.processor(fakeText{fn: textResult("x", 1)}, nil, Options{})
		_, err := p.Reprocess(ctx, f.prop.ID, constants.Turnover)
		require.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Contains(t, err.Error(), "No PDF files found in Turnover category")
	})

	t.Run("category not reprocessable", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		p := f.processor(fakeText{fn: textResult("x", 1)}, nil, Options{})
		_, err := p.Reprocess(ctx, f.prop.ID, constants.PersonalID)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("refreshes pages and details but keeps reviewer edits", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		pdf := f.uploadOne(t, "bank statement.pdf")
		img := f.uploadOne(t, "bank statement page.jpg")
		_, err := f.intake.SetClassification(ctx, f.prop.ID, pdf.ID, "HDFC Current Account")
		require.NoError(t, err)
		_, err = f.intake.EditText(ctx, f.prop.ID, pdf.ID, "old")
		require.NoError(t, err)

		p := f.processor(fakeText{fn: textResult("HDFC BANK statement", 4)}, nil, Options{})
		first, err := p.Reprocess(ctx, f.prop.ID, constants.Banking)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, pdf.ID, first[0].DocumentID)
		assert.Equal(t, len("HDFC BANK statement"), first[0].TextLength)
		assert.Empty(t, first[0].Error)

		got := f.doc(t, pdf.ID)
		assert.Equal(t, "old", got.ExtractedText)
		assert.True(t, got.TextEdited)
		assert.Equal(t, "HDFC Current Account", got.Classification)
		require.NotNil(t, got.ExtractedDetails)
		assert.Equal(t, entity.DetailsBankStatement, got.ExtractedDetails.Kind)
		require.NotNil(t, got.Pages)
		assert.Equal(t, 4, *got.Pages)

		second, err := p.Reprocess(ctx, f.prop.ID, constants.Banking)
		require.NoError(t, err)
		assert.Equal(t, first[0].Details, second[0].Details)
		assert.Equal(t, constants.JobStatusPending, f.doc(t, img.ID).Status)
	})

	t.Run("bank statements keep full text", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		long := strings.Repeat("ab", 400)
		p := f.processor(fakeText{fn: textResult(long, 2)}, nil, Options{})

		require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))
		assert.Len(t, f.doc(t, d.ID).ExtractedText, 500)

		_, err := p.Reprocess(ctx, f.prop.ID, constants.Banking)
		require.NoError(t, err)
		assert.Len(t, f.doc(t, d.ID).ExtractedText, 800)
	})
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "héll", prefix("héllo", 4))
	assert.Equal(t, "hi", prefix("hi", 4))
	assert.Equal(t, "", prefix("abc", 0))
}

type blockingText struct{}

func (blockingText) Extract(ctx context.Context, _ string) (ocr.ExtractionResult, error) {
	<-ctx.Done()
	return ocr.ExtractionResult{}, ctx.Err()
}

// hookClassifier runs fn before returning its label, standing in for a
// reviewer acting while the pass is still running.
type hookClassifier struct {
	label string
	fn    func()
}

func (h hookClassifier) Classify(context.Context, string, string, constants.Category, *entity.Proposal) string {
	h.fn()
	return h.label
}

func TestProcessDocument_JobDeadline(t *testing.T) {
	t.Run("expired job still records the failure", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		p := f.processor(blockingText{}, nil, Options{})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := p.ProcessDocument(ctx, f.prop.ID, d.ID)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusFailed, got.Status)
		assert.Contains(t, got.Error, context.DeadlineExceeded.Error())
		assert.Empty(t, got.ExtractedText)
		assert.Nil(t, got.Pages)
		assert.Nil(t, got.ExtractedDetails)
		assert.NotNil(t, got.ProcessedAt)
	})

	t.Run("panic after cancellation is recorded", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := f.processor(fakeText{fn: func(string) (ocr.ExtractionResult, error) {
			cancel()
			panic("engine crashed")
		}}, nil, Options{})

		err := p.ProcessDocument(ctx, f.prop.ID, d.ID)
		require.Error(t, err)

		got := f.doc(t, d.ID)
		assert.Equal(t, constants.JobStatusFailed, got.Status)
		assert.Contains(t, got.Error, "engine crashed")
	})
}

func TestProcessDocument_ReviewerActsMidPass(t *testing.T) {
	ctx := context.Background()

	t.Run("recategorized document keeps the reviewer's filing", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		classifier := hookClassifier{label: "HDFC Current Account", fn: func() {
			_, err := f.intake.Categorize(ctx, f.prop.ID, d.ID, string(constants.Financials))
			require.NoError(t, err)
			_, err = f.intake.SetClassification(ctx, f.prop.ID, d.ID, "Audited Balance Sheet")
			require.NoError(t, err)
		}}
		p := NewProcessor(nil, fakeText{fn: textResult("HDFC BANK statement of account", 2)}, classifier, nil, f.proposals, f.store, Options{})

		require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))

		got := f.doc(t, d.ID)
		assert.Equal(t, constants.Financials, got.Category)
		assert.Equal(t, "Audited Balance Sheet", got.Classification)
		assert.Nil(t, got.ExtractedDetails)
		assert.Equal(t, constants.JobStatusDone, got.Status)
		require.NotNil(t, got.Pages)
		assert.Equal(t, 2, *got.Pages)
	})

	t.Run("text edited during the pass is kept", func(t *testing.T) {
		f := newFixture(t, constants.ApplicantPartnership)
		d := f.uploadOne(t, "bank statement.pdf")
		classifier := hookClassifier{label: "HDFC Current Account", fn: func() {
			_, err := f.intake.EditText(ctx, f.prop.ID, d.ID, "reviewer text")
			require.NoError(t, err)
		}}
		p := NewProcessor(nil, fakeText{fn: textResult("machine text", 1)}, classifier, nil, f.proposals, f.store, Options{})

		require.NoError(t, p.ProcessDocument(ctx, f.prop.ID, d.ID))

		got := f.doc(t, d.ID)
		assert.Equal(t, "reviewer text", got.ExtractedText)
		assert.True(t, got.TextEdited)
		assert.Equal(t, "HDFC Current Account", got.Classification)
	})
}

type cancelingScheduler struct {
	cancel context.CancelFunc
	errs   []error
	traces []string
}

func (s *cancelingScheduler) Schedule(ctx context.Context, _ uuid.UUID, _ string) error {
	s.errs = append(s.errs, ctx.Err())
	s.traces = append(s.traces, common.TraceIDFromContext(ctx))
	s.cancel()
	return nil
}

func TestIntake_ScheduleOutlivesRequest(t *testing.T) {
	f := newFixture(t, constants.ApplicantPartnership)
	ctx, cancel := context.WithCancel(common.WithTraceID(context.Background(), "trace-1"))
	defer cancel()
	sched := &cancelingScheduler{cancel: cancel}
	f.intake.SetScheduler(sched)

	docs, err := f.intake.Upload(ctx, f.prop.ID, []UploadFile{
		upload("a.pdf", "%PDF-1.4 a"),
		upload("b.pdf", "%PDF-1.4 b"),
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []error{nil, nil}, sched.errs)
	assert.Equal(t, []string{"trace-1", "trace-1"}, sched.traces)
}

func TestIntake_UploadRejectsDuplicatesInBatch(t *testing.T) {
	ctx := context.Background()

	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	w, err := zw.Create("statement.pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("%PDF-1.4 zipped"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name  string
		files []UploadFile
	}{
		{"same name twice", []UploadFile{upload("pan.pdf", "one"), upload("pan.pdf", "two")}},
		{"zip member repeats a file", []UploadFile{upload("statement.pdf", "loose"), upload("bundle.zip", zipped.String())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, constants.ApplicantPartnership)
			_, err := f.intake.Upload(ctx, f.prop.ID, tt.files)
			require.ErrorIs(t, err, common.ErrConflict)
			assert.Contains(t, err.Error(), "Duplicate files detected")

			prop, err := f.proposals.GetByID(ctx, f.prop.ID)
			require.NoError(t, err)
			assert.Empty(t, prop.Documents)
			assert.Empty(t, f.sched.ids)
		})
	}
}
