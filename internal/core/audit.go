package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionVersionDelete    AuditAction = "version_delete"
	ActionDeletionRejected AuditAction = "deletion_rejected"
	ActionDeletionAborted  AuditAction = "deletion_aborted"
	ActionAuditPurge       AuditAction = "audit_purge"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           uuid.UUID      `json:"id"`
	Action       AuditAction    `json:"action"`
	Severity     AuditSeverity  `json:"severity"`
	DatasetID    uuid.UUID      `json:"datasetId"`
	VersionID    *uuid.UUID     `json:"versionId,omitempty"`
	Version      string         `json:"version,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	RowsAffected int            `json:"rowsAffected,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	DatasetID    uuid.UUID
	VersionID    *uuid.UUID
	Version      string
	RowsAffected int
	Details      map[string]any
	Reason       string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionVersionDelete:
		return SeverityHigh
	case ActionDeletionAborted:
		return SeverityCritical
	case ActionAuditPurge:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit records an audit entry. Client details are taken from the
// RequestInfo on ctx.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	info := RequestInfoFromContext(ctx)
	entry := AuditEntry{
		ID:           uuid.New(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		DatasetID:    params.DatasetID,
		VersionID:    params.VersionID,
		Version:      params.Version,
		IPAddress:    info.IPAddress,
		UserAgent:    info.UserAgent,
		RowsAffected: params.RowsAffected,
		Details:      params.Details,
		Reason:       params.Reason,
		RequestID:    info.RequestID,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return &entry, nil
}

// logAuditBestEffort records an audit entry and only logs a failure.
func (s *Service) logAuditBestEffort(ctx context.Context, params AuditLogParams) {
	if _, err := s.LogAudit(ctx, params); err != nil {
		s.logger.Warn("audit log failed", "action", params.Action, "error", err)
	}
}
