// Package database is the Postgres implementation of core.Store.
//
// Queries are plain SQL over pgx; the schema lives in migrations/ and is
// embedded into the binary for goose.
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the SQL statements used by Store.
type Queries struct {
	db DBTX
}

// DatasetVersion is a row of dataset_versions.
type DatasetVersion struct {
	ID                pgtype.UUID
	DatasetID         pgtype.UUID
	VersionMajor      int32
	VersionMinor      int32
	VersionPatch      int32
	Status            string
	PreviousVersionID pgtype.UUID
	CreatedAt         pgtype.Timestamptz
	PublishedAt       pgtype.Timestamptz
}

const datasetVersionColumns = `id, dataset_id, version_major, version_minor, version_patch,
       status, previous_version_id, created_at, published_at`

func scanDatasetVersion(row pgx.Row) (DatasetVersion, error) {
	var i DatasetVersion
	err := row.Scan(
		&i.ID,
		&i.DatasetID,
		&i.VersionMajor,
		&i.VersionMinor,
		&i.VersionPatch,
		&i.Status,
		&i.PreviousVersionID,
		&i.CreatedAt,
		&i.PublishedAt,
	)
	return i, err
}

const listDatasetVersions = `SELECT ` + datasetVersionColumns + `
FROM dataset_versions
WHERE dataset_id = $1
  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
ORDER BY version_major, version_minor, version_patch, id`

// ListDatasetVersionsParams filters ListDatasetVersions. An empty Statuses
// matches every status.
type ListDatasetVersionsParams struct {
	DatasetID pgtype.UUID
	Statuses  []string
}

func (q *Queries) ListDatasetVersions(ctx context.Context, arg ListDatasetVersionsParams) ([]DatasetVersion, error) {
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.Query(ctx, listDatasetVersions, arg.DatasetID, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DatasetVersion
	for rows.Next() {
		i, err := scanDatasetVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDatasetVersion = `SELECT ` + datasetVersionColumns + `
FROM dataset_versions
WHERE id = $1`

func (q *Queries) GetDatasetVersion(ctx context.Context, id pgtype.UUID) (DatasetVersion, error) {
	return scanDatasetVersion(q.db.QueryRow(ctx, getDatasetVersion, id))
}

const deleteDatasetVersion = `DELETE FROM dataset_versions WHERE id = $1`

// DeleteDatasetVersion returns the number of rows removed.
func (q *Queries) DeleteDatasetVersion(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDatasetVersion, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DatasetVersionMapping is a row of dataset_version_mappings.
type DatasetVersionMapping struct {
	TargetVersionID pgtype.UUID
	SourceVersionID pgtype.UUID
	Plan            []byte
	UpdatedAt       pgtype.Timestamptz
}

const getMappingPlan = `SELECT target_version_id, source_version_id, plan, updated_at
FROM dataset_version_mappings
WHERE target_version_id = $1`

func (q *Queries) GetMappingPlan(ctx context.Context, targetVersionID pgtype.UUID) (DatasetVersionMapping, error) {
	var i DatasetVersionMapping
	err := q.db.QueryRow(ctx, getMappingPlan, targetVersionID).Scan(
		&i.TargetVersionID,
		&i.SourceVersionID,
		&i.Plan,
		&i.UpdatedAt,
	)
	return i, err
}

const insertAuditLog = `INSERT INTO audit_log (
    id, action, severity, dataset_id, version_id, version,
    ip_address, user_agent, request_id, rows_affected, details, reason, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// InsertAuditLogParams holds the columns of one audit_log row.
type InsertAuditLogParams struct {
	ID           pgtype.UUID
	Action       string
	Severity     string
	DatasetID    pgtype.UUID
	VersionID    pgtype.UUID
	Version      pgtype.Text
	IpAddress    pgtype.Text
	UserAgent    pgtype.Text
	RequestID    pgtype.Text
	RowsAffected int32
	Details      []byte
	Reason       pgtype.Text
	CreatedAt    pgtype.Timestamptz
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.ID,
		arg.Action,
		arg.Severity,
		arg.DatasetID,
		arg.VersionID,
		arg.Version,
		arg.IpAddress,
		arg.UserAgent,
		arg.RequestID,
		arg.RowsAffected,
		arg.Details,
		arg.Reason,
		arg.CreatedAt,
	)
	return err
}

const purgeAuditLog = `DELETE FROM audit_log WHERE created_at < $1`

func (q *Queries) PurgeAuditLog(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, purgeAuditLog, pgtype.Timestamptz{Time: before, Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
