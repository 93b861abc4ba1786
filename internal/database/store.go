package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

// Store implements core.Store on Postgres.
type Store struct {
	q *Queries
}

var _ core.Store = (*Store)(nil)

// NewStore returns a Store over db, usually a *pgxpool.Pool.
func NewStore(db DBTX) *Store {
	return &Store{q: New(db)}
}

func (s *Store) ListDatasetVersions(ctx context.Context, datasetID uuid.UUID, statuses ...core.Status) ([]core.DatasetVersion, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := s.q.ListDatasetVersions(ctx, ListDatasetVersionsParams{
		DatasetID: toPgUUID(datasetID),
		Statuses:  names,
	})
	if err != nil {
		return nil, fmt.Errorf("list dataset versions: %w", err)
	}

	out := make([]core.DatasetVersion, 0, len(rows))
	for _, row := range rows {
		v, err := toDatasetVersion(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) GetDatasetVersion(ctx context.Context, id uuid.UUID) (core.DatasetVersion, error) {
	row, err := s.q.GetDatasetVersion(ctx, toPgUUID(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.DatasetVersion{}, core.ErrNotFound(core.ErrVersionNotFound, "dataset version %s not found", id)
	}
	if err != nil {
		return core.DatasetVersion{}, fmt.Errorf("get dataset version: %w", err)
	}
	return toDatasetVersion(row)
}

// DeleteDatasetVersion removes one version. The foreign key on
// previous_version_id makes Postgres reject the delete while a successor
// still exists.
func (s *Store) DeleteDatasetVersion(ctx context.Context, id uuid.UUID) error {
	n, err := s.q.DeleteDatasetVersion(ctx, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete dataset version: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound(core.ErrVersionNotFound, "dataset version %s not found", id)
	}
	return nil
}

func (s *Store) GetMappingPlan(ctx context.Context, targetVersionID uuid.UUID) (core.MappingRecord, error) {
	row, err := s.q.GetMappingPlan(ctx, toPgUUID(targetVersionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MappingRecord{}, core.ErrNotFound(core.ErrMappingNotFound, "no mapping plan for version %s", targetVersionID)
	}
	if err != nil {
		return core.MappingRecord{}, fmt.Errorf("get mapping plan: %w", err)
	}
	return toMappingRecord(row)
}

func (s *Store) InsertAuditEntry(ctx context.Context, e core.AuditEntry) error {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	params := InsertAuditLogParams{
		ID:           toPgUUID(e.ID),
		Action:       string(e.Action),
		Severity:     string(e.Severity),
		DatasetID:    toPgUUIDOrNull(e.DatasetID),
		VersionID:    toPgUUIDPtr(e.VersionID),
		Version:      toPgText(e.Version),
		IpAddress:    toPgText(e.IPAddress),
		UserAgent:    toPgText(e.UserAgent),
		RequestID:    toPgText(e.RequestID),
		RowsAffected: int32(e.RowsAffected),
		Details:      details,
		Reason:       toPgText(e.Reason),
		CreatedAt:    pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	}
	if err := s.q.InsertAuditLog(ctx, params); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.q.PurgeAuditLog(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return n, nil
}

func toDatasetVersion(row DatasetVersion) (core.DatasetVersion, error) {
	n, err := versioning.NewNumber(int(row.VersionMajor), int(row.VersionMinor), int(row.VersionPatch))
	if err != nil {
		return core.DatasetVersion{}, fmt.Errorf("dataset version %s: %w", uuid.UUID(row.ID.Bytes), err)
	}

	v := core.DatasetVersion{
		ID:                row.ID.Bytes,
		DatasetID:         row.DatasetID.Bytes,
		Number:            n,
		Status:            core.Status(row.Status),
		PreviousVersionID: fromPgUUIDPtr(row.PreviousVersionID),
		CreatedAt:         row.CreatedAt.Time,
	}
	if row.PublishedAt.Valid {
		t := row.PublishedAt.Time
		v.PublishedAt = &t
	}
	return v, nil
}

func toMappingRecord(row DatasetVersionMapping) (core.MappingRecord, error) {
	rec := core.MappingRecord{
		SourceVersionID: row.SourceVersionID.Bytes,
		TargetVersionID: row.TargetVersionID.Bytes,
		UpdatedAt:       row.UpdatedAt.Time,
	}
	if len(row.Plan) > 0 {
		var plan mapping.Plan
		if err := json.Unmarshal(row.Plan, &plan); err != nil {
			return core.MappingRecord{}, &mapping.InvalidPlanShapeError{Path: "plan", Reason: err.Error()}
		}
		rec.Plan = plan
	}
	return rec, nil
}
