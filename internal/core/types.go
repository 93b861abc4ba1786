package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

// Status is the lifecycle state of a dataset version.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
	StatusMapping    Status = "mapping"
	StatusDraft      Status = "draft"
	StatusCancelled  Status = "cancelled"
	StatusPublished  Status = "published"
	StatusDeprecated Status = "deprecated"
	StatusWithdrawn  Status = "withdrawn"
)

// PublicStatuses are the states visible to consumers of the public API.
var PublicStatuses = []Status{StatusPublished, StatusDeprecated, StatusWithdrawn}

// DeletableStatuses are the pre-publication states a version may be deleted from.
var DeletableStatuses = []Status{StatusProcessing, StatusFailed, StatusMapping, StatusDraft, StatusCancelled}

// Public reports whether versions in this state are authoritative and visible.
func (s Status) Public() bool {
	switch s {
	case StatusPublished, StatusDeprecated, StatusWithdrawn:
		return true
	}
	return false
}

// Deletable reports whether a version in this state may be removed.
func (s Status) Deletable() bool {
	switch s {
	case StatusProcessing, StatusFailed, StatusMapping, StatusDraft, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Public() || s.Deletable()
}

// DatasetVersion is one numbered version of a dataset.
type DatasetVersion struct {
	ID                uuid.UUID         `json:"id" yaml:"id"`
	DatasetID         uuid.UUID         `json:"datasetId" yaml:"datasetId"`
	Number            versioning.Number `json:"number" yaml:"number"`
	Status            Status            `json:"status" yaml:"status"`
	PreviousVersionID *uuid.UUID        `json:"previousVersionId,omitempty" yaml:"previousVersionId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt" yaml:"createdAt"`
	PublishedAt       *time.Time        `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
}

// VersionNumber implements versioning.Numbered.
func (v DatasetVersion) VersionNumber() versioning.Number { return v.Number }

// EntityID implements lineage.Entity.
func (v DatasetVersion) EntityID() string { return v.ID.String() }

// PreviousEntityID implements lineage.Entity.
func (v DatasetVersion) PreviousEntityID() string {
	if v.PreviousVersionID == nil {
		return ""
	}
	return v.PreviousVersionID.String()
}

// MappingRecord is the stored mapping plan from a source version to the
// version that replaces it.
type MappingRecord struct {
	SourceVersionID uuid.UUID    `json:"sourceVersionId"`
	TargetVersionID uuid.UUID    `json:"targetVersionId"`
	Plan            mapping.Plan `json:"plan"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Store is the persistence port used by Service.
//
// Lookups that find nothing return a *NotFoundError wrapping
// ErrVersionNotFound or ErrMappingNotFound.
type Store interface {
	// ListDatasetVersions returns the versions of a dataset. When statuses
	// is non-empty only versions in one of those states are returned.
	ListDatasetVersions(ctx context.Context, datasetID uuid.UUID, statuses ...Status) ([]DatasetVersion, error)
	GetDatasetVersion(ctx context.Context, id uuid.UUID) (DatasetVersion, error)
	DeleteDatasetVersion(ctx context.Context, id uuid.UUID) error
	GetMappingPlan(ctx context.Context, targetVersionID uuid.UUID) (MappingRecord, error)
	InsertAuditEntry(ctx context.Context, entry AuditEntry) error
	// ListAuditEntries returns one page of matching entries, newest first,
	// and the number of entries matching f overall.
	ListAuditEntries(ctx context.Context, f AuditFilter) ([]AuditEntry, int64, error)
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
