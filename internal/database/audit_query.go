package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/statspub/internal/core"
)

// whereBuilder assembles a parameterised WHERE clause.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends "column = $n" unless value is empty.
func (wb *whereBuilder) add(column string, value string) {
	if value == "" {
		return
	}
	wb.args = append(wb.args, value)
	wb.conds = append(wb.conds, fmt.Sprintf("%s = $%d", column, len(wb.args)))
}

func (wb *whereBuilder) addUUID(column string, id *uuid.UUID) {
	if id == nil {
		return
	}
	wb.args = append(wb.args, toPgUUID(*id))
	wb.conds = append(wb.conds, fmt.Sprintf("%s = $%d", column, len(wb.args)))
}

// addTimeRange restricts column to [since, until). Zero bounds are open.
func (wb *whereBuilder) addTimeRange(column string, since, until time.Time) {
	if !since.IsZero() {
		wb.args = append(wb.args, pgtype.Timestamptz{Time: since, Valid: true})
		wb.conds = append(wb.conds, fmt.Sprintf("%s >= $%d", column, len(wb.args)))
	}
	if !until.IsZero() {
		wb.args = append(wb.args, pgtype.Timestamptz{Time: until, Valid: true})
		wb.conds = append(wb.conds, fmt.Sprintf("%s < $%d", column, len(wb.args)))
	}
}

// nextArg returns the index of the next placeholder.
func (wb *whereBuilder) nextArg() int {
	return len(wb.args) + 1
}

func (wb *whereBuilder) build() (string, []any) {
	if len(wb.conds) == 0 {
		return "", wb.args
	}
	return " WHERE " + strings.Join(wb.conds, " AND "), wb.args
}

const auditLogColumns = `id, action, severity, dataset_id, version_id, version,
       ip_address, user_agent, request_id, rows_affected, details, reason, created_at`

// AuditLog is a row of audit_log.
type AuditLog struct {
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

func scanAuditLog(row pgx.Row) (AuditLog, error) {
	var i AuditLog
	err := row.Scan(
		&i.ID,
		&i.Action,
		&i.Severity,
		&i.DatasetID,
		&i.VersionID,
		&i.Version,
		&i.IpAddress,
		&i.UserAgent,
		&i.RequestID,
		&i.RowsAffected,
		&i.Details,
		&i.Reason,
		&i.CreatedAt,
	)
	return i, err
}

// ListAuditLog returns one page of audit rows matching f, newest first,
// and the total count of matching rows.
func (q *Queries) ListAuditLog(ctx context.Context, f core.AuditFilter) ([]AuditLog, int64, error) {
	var wb whereBuilder
	wb.addUUID("dataset_id", f.DatasetID)
	wb.add("action", string(f.Action))
	wb.add("severity", string(f.Severity))
	wb.addTimeRange("created_at", f.Since, f.Until)
	where, args := wb.build()

	var total int64
	if err := q.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + auditLogColumns + " FROM audit_log" + where + " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", wb.nextArg())
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, f.Offset)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []AuditLog
	for rows.Next() {
		i, err := scanAuditLog(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, int64, error) {
	rows, total, err := s.q.ListAuditLog(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit log: %w", err)
	}

	out := make([]core.AuditEntry, 0, len(rows))
	for _, row := range rows {
		e, err := toAuditEntry(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}

func toAuditEntry(row AuditLog) (core.AuditEntry, error) {
	e := core.AuditEntry{
		ID:           row.ID.Bytes,
		Action:       core.AuditAction(row.Action),
		Severity:     core.AuditSeverity(row.Severity),
		VersionID:    fromPgUUIDPtr(row.VersionID),
		Version:      row.Version.String,
		IPAddress:    row.IpAddress.String,
		UserAgent:    row.UserAgent.String,
		RequestID:    row.RequestID.String,
		RowsAffected: int(row.RowsAffected),
		Reason:       row.Reason.String,
		CreatedAt:    row.CreatedAt.Time,
	}
	if row.DatasetID.Valid {
		e.DatasetID = row.DatasetID.Bytes
	}
	if len(row.Details) > 0 {
		if err := json.Unmarshal(row.Details, &e.Details); err != nil {
			return core.AuditEntry{}, fmt.Errorf("audit entry %s details: %w", uuid.UUID(row.ID.Bytes), err)
		}
	}
	return e, nil
}
