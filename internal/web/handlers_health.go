package web

import (
	"net/http"

	"github.com/JonMunkholm/statspub/internal/core"
)

type healthResponse struct {
	Status    string                     `json:"status"`
	Store     string                     `json:"store"`
	Deletions core.DeletionLimiterStatus `json:"deletions"`
}

// handleHealth serves GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Store:     s.cfg.Store.Backend,
		Deletions: s.service.Limiter().Status(),
	})
}
