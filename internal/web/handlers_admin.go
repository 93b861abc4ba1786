package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/logging"
)

// maxDeleteBody bounds the body of a deletion request.
const maxDeleteBody = 1 << 20

// deleteVersionsRequest is the body of DELETE /api/admin/datasets/{id}/versions.
// An empty list, or no body at all, selects every deletable version.
type deleteVersionsRequest struct {
	VersionIDs []uuid.UUID `json:"versionIds"`
}

// deletionFailure reports a failed deletion together with what was removed
// before the failure.
type deletionFailure struct {
	ErrorResponse
	Result core.DeletionResult `json:"result"`
}

// purgeResponse reports the outcome of a manual audit log purge.
type purgeResponse struct {
	RetentionDays int   `json:"retentionDays"`
	Purged        int64 `json:"purged"`
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, core.ErrValidation("invalid %s %q", name, raw)
	}
	return id, nil
}

// handleDeletionPlan serves GET /api/admin/datasets/{datasetID}/deletion-plan.
func (s *Server) handleDeletionPlan(w http.ResponseWriter, r *http.Request) {
	datasetID, err := uuidParam(r, "datasetID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	plan, err := s.service.PlanDeletion(r.Context(), datasetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if plan.Versions == nil {
		plan.Versions = []core.DatasetVersion{}
	}

	s.writeJSON(w, http.StatusOK, plan)
}

// handleDeleteVersions serves DELETE /api/admin/datasets/{datasetID}/versions.
func (s *Server) handleDeleteVersions(w http.ResponseWriter, r *http.Request) {
	datasetID, err := uuidParam(r, "datasetID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req deleteVersionsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDeleteBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, r, core.ErrValidation("invalid request body: %v", err))
		return
	}

	logger := logging.ForDataset(r.Context(), datasetID.String())
	logger.Info("deletion requested", "versions", len(req.VersionIDs))

	result, err := s.service.DeleteVersions(r.Context(), datasetID, req.VersionIDs)
	if err != nil {
		if errors.Is(err, core.ErrTooManyDeletions) {
			w.Header().Set("Retry-After", "10")
		}
		if len(result.Deleted) == 0 {
			s.respondError(w, r, err)
			return
		}
		// Partial run: report what is already gone.
		userMsg := core.MapError(err)
		logger.Error("deletion stopped", "deleted", len(result.Deleted), "error", err)
		s.writeJSON(w, statusFor(err), deletionFailure{
			ErrorResponse: ErrorResponse{
				Error:   userMsg.Message,
				Message: userMsg.Message,
				Action:  userMsg.Action,
				Code:    userMsg.Code,
			},
			Result: result,
		})
		return
	}
	if result.Deleted == nil {
		result.Deleted = []core.DeletedVersion{}
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleMappingSummary serves GET /api/admin/dataset-versions/{versionID}/mapping/summary.
func (s *Server) handleMappingSummary(w http.ResponseWriter, r *http.Request) {
	versionID, err := uuidParam(r, "versionID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	review, err := s.service.ReviewMapping(r.Context(), versionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, review)
}

// handleMappingPage serves the HTML review page for a version's mapping.
func (s *Server) handleMappingPage(w http.ResponseWriter, r *http.Request) {
	versionID, err := uuidParam(r, "versionID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	review, err := s.service.ReviewMapping(r.Context(), versionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, mappingPage(review))
}

// handlePurgeAuditLog serves POST /api/admin/audit-log/purge. The optional
// retentionDays query parameter overrides the configured retention.
func (s *Server) handlePurgeAuditLog(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.Audit.RetentionDays
	if raw := r.URL.Query().Get("retentionDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, r, core.ErrValidation("invalid retentionDays %q", raw))
			return
		}
		days = n
	}

	purged, err := s.service.PurgeAuditLog(r.Context(), days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, purgeResponse{RetentionDays: days, Purged: purged})
}
