package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/core"
)

// versionsResponse lists the public versions of a dataset, newest first.
type versionsResponse struct {
	DatasetID uuid.UUID             `json:"datasetId"`
	Versions  []core.DatasetVersion `json:"versions"`
}

// publicDatasetID reads the dataset id of a public route. An unreadable id
// names no dataset, so it is reported as not found.
func publicDatasetID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "datasetID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, core.ErrNotFound(core.ErrVersionNotFound, "dataset %q not found", raw)
	}
	return id, nil
}

// handleListVersions serves GET /api/v1/datasets/{datasetID}/versions.
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	datasetID, err := publicDatasetID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	versions, err := s.service.ListPublicVersions(r.Context(), datasetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if versions == nil {
		versions = []core.DatasetVersion{}
	}

	s.writeJSON(w, http.StatusOK, versionsResponse{DatasetID: datasetID, Versions: versions})
}

// handleResolveVersion serves GET /api/v1/datasets/{datasetID}/versions/{version}.
// The version segment is a token such as 1.2.0, v1.*, 2 or *.
func (s *Server) handleResolveVersion(w http.ResponseWriter, r *http.Request) {
	datasetID, err := publicDatasetID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	v, err := s.service.ResolveVersion(r.Context(), datasetID, chi.URLParam(r, "version"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, v)
}
