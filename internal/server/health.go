package server

import (
	"net/http"
	"time"

	"github.com/joseph-ayodele/loan-intake/internal/repository"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := repository.HealthCheck(r.Context(), s.deps.DB, 2*time.Second, s.logger); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
