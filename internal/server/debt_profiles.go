package server

import (
	"net/http"

	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

func (s *Server) handleExtractDebtProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.deps.DebtProfile.ExtractForProposal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "debtProfiles": rows})
}

func (s *Server) handleListDebtProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.deps.DebtProfile.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"debtProfiles": rows})
}

func (s *Server) handleGetDebtProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.DebtProfile.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDebtProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch entity.DebtProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.deps.DebtProfile.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDebtProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.DebtProfile.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
