package server

import (
	"net/http"
	"strings"

	"github.com/joseph-ayodele/loan-intake/constants"
	"github.com/joseph-ayodele/loan-intake/internal/common"
	"github.com/joseph-ayodele/loan-intake/internal/entity"
)

type createProposalRequest struct {
	ApplicantName string               `json:"applicantName"`
	CustomerName  string               `json:"customerName"`
	ApplicantType string               `json:"applicantType"`
	CoApplicants  []entity.CoApplicant `json:"coApplicants"`
}

var applicantTypes = []string{
	string(constants.ApplicantIndividual),
	string(constants.ApplicantProprietorship),
	string(constants.ApplicantPartnership),
	string(constants.ApplicantLLP),
	string(constants.ApplicantPrivateLimited),
	string(constants.ApplicantPublicLimited),
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.ApplicantName = strings.TrimSpace(req.ApplicantName)

	v := common.NewValidator().
		Field("applicantName", req.ApplicantName, common.Required, common.MaxLen(200)).
		Field("applicantType", req.ApplicantType, common.OneOf(applicantTypes...))
	for _, c := range req.CoApplicants {
		v.Field("coApplicants.type", string(c.Type), common.OneOf(applicantTypes...))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.deps.Proposals.Create(r.Context(), &entity.Proposal{
		ApplicantName: req.ApplicantName,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		ApplicantType: constants.ApplicantType(req.ApplicantType),
		CoApplicants:  req.CoApplicants,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("proposal.created", "proposal_id", p.ID, "applicant_type", p.ApplicantType)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	ps, err := s.deps.Proposals.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": ps})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "proposalID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Proposals.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
