package api

import (
	"encoding/json"
	"net/http"

	"github.com/listinggopher/listinggopher/internal/app/pipeline"
	"github.com/listinggopher/listinggopher/internal/domain"
)

// generateRequest is the body for POST /api/generate.
type generateRequest struct {
	PropertyDetails string   `json:"property_details"`
	Notes           string   `json:"notes,omitempty"`
	PhotoURLs       []string `json:"photo_urls,omitempty"`
	MaxWords        int      `json:"max_words,omitempty"`

	// CriticalStage optionally overrides which stage is critical.
	// It must name a stage in the default pipeline.
	CriticalStage string `json:"critical_stage,omitempty"`
}

// handleGenerate runs the full generation pipeline for the caller.
// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	personal, domainOwner, err := callerIdentities(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed "+identityHeader+" header")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PropertyDetails == "" && len(req.PhotoURLs) == 0 {
		writeError(w, http.StatusBadRequest, "property_details or photo_urls required")
		return
	}

	stages := pipeline.DefaultStages()
	criticalIndex := pipeline.DefaultCriticalIndex
	if req.CriticalStage != "" {
		criticalIndex = -1
		for i, st := range stages {
			if st.Name == req.CriticalStage {
				criticalIndex = i
				break
			}
		}
		if criticalIndex < 0 {
			writeError(w, http.StatusBadRequest, "unknown critical_stage: "+req.CriticalStage)
			return
		}
	}

	result, err := s.orch.Run(r.Context(), personal, domainOwner, pipeline.Request{
		PropertyDetails: req.PropertyDetails,
		Notes:           req.Notes,
		PhotoURLs:       req.PhotoURLs,
		MaxWords:        req.MaxWords,
	}, stages, criticalIndex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if result.Status == domain.AttemptDenied {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, result)
}
