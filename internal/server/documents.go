package server

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/core"
)

const uploadField = "documents"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(constants.MaxUploadFiles)*constants.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, common.InvalidArgumentErrorf("invalid multipart body: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	files := make([]core.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFile(fh))
	}

	docs, err := s.deps.Intake.Upload(r.Context(), id, files)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Files uploaded successfully. Processing started in background.",
		"documents": docs,
	})
}

func uploadFile(fh *multipart.FileHeader) core.UploadFile {
	return core.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Intake.DeleteDocument(r.Context(), id, chi.URLParam(r, "docID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categorizeRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.Intake.Categorize(r.Context(), id, chi.URLParam(r, "docID"), req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type classifyRequest struct {
	Classification string `json:"classification"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.Intake.SetClassification(r.Context(), id, chi.URLParam(r, "docID"), req.Classification)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type editTextRequest struct {
	ExtractedText *string `json:"extractedText"`
}

func (s *Server) handleEditText(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req editTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ExtractedText == nil {
		s.writeError(w, r, common.InvalidArgumentError("extractedText is required"))
		return
	}
	d, err := s.deps.Intake.EditText(r.Context(), id, chi.URLParam(r, "docID"), *req.ExtractedText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cat, ok := constants.Canonicalize(chi.URLParam(r, "category"))
	if !ok {
		s.writeError(w, r, common.InvalidArgumentErrorf("unknown category %q", chi.URLParam(r, "category")))
		return
	}
	results, err := s.deps.Processor.Reprocess(r.Context(), id, cat)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":  cat,
		"processed": len(results),
		"results":   results,
	})
}
