package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.deps.Export.ExportProposalXLSX(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("proposal_%s_%s.xlsx", id.String()[:8], time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
