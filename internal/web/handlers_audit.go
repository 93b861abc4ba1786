package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/core"
)

// parseAuditFilter reads the audit query parameters:
//
//	datasetId, action, severity  exact matches
//	since, until                 RFC 3339 timestamps, until is exclusive
//	limit, offset                paging
func parseAuditFilter(r *http.Request) (core.AuditFilter, error) {
	q := r.URL.Query()
	f := core.AuditFilter{
		Action:   core.AuditAction(q.Get("action")),
		Severity: core.AuditSeverity(q.Get("severity")),
	}

	if raw := q.Get("datasetId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, core.ErrValidation("invalid datasetId %q", raw)
		}
		f.DatasetID = &id
	}

	for name, dst := range map[string]*time.Time{"since": &f.Since, "until": &f.Until} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return f, core.ErrValidation("invalid %s %q: use RFC 3339", name, raw)
			}
			*dst = t
		}
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return f, core.ErrValidation("invalid %s %q", name, raw)
			}
			*dst = n
		}
	}

	return f, nil
}

// handleAuditLog serves GET /api/admin/audit-log.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	f, err := parseAuditFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.GetAuditLog(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleAuditLogExport serves GET /api/admin/audit-log/export as CSV.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseAuditFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("audit-log-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	n, err := s.service.ExportAuditLog(r.Context(), f, w)
	if err != nil {
		// Headers are gone once rows were written; log only.
		s.logger.Error("audit export failed", "rows", n, "error", err)
		return
	}
	s.logger.Info("audit log exported", "rows", n)
}
