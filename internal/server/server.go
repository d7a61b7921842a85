package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/core"
	"github.com/joseph-ayodele/loan-intake/internal/debtprofile"
	"github.com/joseph-ayodele/loan-intake/internal/export"
	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	DB          *repository.DB
	Proposals   repository.ProposalRepository
	Intake      *core.Intake
	Processor   *core.Processor
	DebtProfile *debtprofile.Service
	Export      *export.Service
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

type Server struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{deps: deps, logger: logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestContext)
	r.Use(middleware.Recoverer)

	origins := s.deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", s.handleCreateProposal)
			r.Get("/", s.handleListProposals)
			r.Route("/{proposalID}", func(r chi.Router) {
				r.Get("/", s.handleGetProposal)
				r.Post("/documents", s.handleUpload)
				r.Delete("/documents/{docID}", s.handleDeleteDocument)
				r.Post("/documents/{docID}/categorize", s.handleCategorize)
				r.Post("/documents/{docID}/classify", s.handleClassify)
				r.Patch("/documents/{docID}/text", s.handleEditText)
				r.Post("/reprocess/{category}", s.handleReprocess)
				r.Post("/debt-profile/extract", s.handleExtractDebtProfile)
				r.Get("/debt-profile", s.handleListDebtProfile)
				r.Get("/export.xlsx", s.handleExport)
			})
		})
		r.Route("/debt-profiles/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDebtProfile)
			r.Patch("/", s.handleUpdateDebtProfile)
			r.Delete("/", s.handleDeleteDebtProfile)
		})
	})
	return r
}

// requestContext copies the request id into the context and logs the request.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ctx := common.WithRequestID(r.Context(), reqID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", reqID,
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	msg := err.Error()
	var ae *common.AppError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.error", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: common.ErrorCode(err), Message: msg}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.InvalidArgumentErrorf("invalid JSON body: %v", err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.InvalidArgumentErrorf("%s must be a UUID", name)
	}
	return id, nil
}
