package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/statspub/internal/core"
)

func TestWhereBuilder(t *testing.T) {
	ds := uuid.New()
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		build     func(wb *whereBuilder)
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "empty",
			build:     func(wb *whereBuilder) {},
			wantWhere: "",
		},
		{
			name: "skips empty values",
			build: func(wb *whereBuilder) {
				wb.add("action", "")
				wb.addUUID("dataset_id", nil)
				wb.addTimeRange("created_at", time.Time{}, time.Time{})
			},
			wantWhere: "",
		},
		{
			name: "all conditions",
			build: func(wb *whereBuilder) {
				wb.addUUID("dataset_id", &ds)
				wb.add("action", "version_delete")
				wb.addTimeRange("created_at", since, since.Add(time.Hour))
			},
			wantWhere: " WHERE dataset_id = $1 AND action = $2 AND created_at >= $3 AND created_at < $4",
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wb whereBuilder
			tt.build(&wb)
			where, args := wb.build()
			assert.Equal(t, tt.wantWhere, where)
			assert.Len(t, args, tt.wantArgs)
			assert.Equal(t, tt.wantArgs+1, wb.nextArg())
		})
	}
}

func TestQueries_ListAuditLogStatement(t *testing.T) {
	db := &fakeDB{}
	ds := uuid.New()

	_, _, err := New(db).ListAuditLog(context.Background(), core.AuditFilter{
		DatasetID: &ds,
		Severity:  core.SeverityHigh,
		Limit:     25,
		Offset:    50,
	})
	require.Error(t, err)

	assert.Contains(t, db.lastSQL, "WHERE dataset_id = $1 AND severity = $2")
	assert.Contains(t, db.lastSQL, "ORDER BY created_at DESC, id LIMIT $3 OFFSET $4")
	require.Len(t, db.lastArgs, 4)
	assert.Equal(t, 25, db.lastArgs[2])
	assert.Equal(t, 50, db.lastArgs[3])
}

func TestToAuditEntry(t *testing.T) {
	id, ds, version := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	e, err := toAuditEntry(AuditLog{
		ID:           pgtype.UUID{Bytes: id, Valid: true},
		Action:       string(core.ActionVersionDelete),
		Severity:     string(core.SeverityHigh),
		DatasetID:    pgtype.UUID{Bytes: ds, Valid: true},
		VersionID:    pgtype.UUID{Bytes: version, Valid: true},
		Version:      pgtype.Text{String: "1.2.0", Valid: true},
		RowsAffected: 1,
		Details:      []byte(`{"status":"draft"}`),
		CreatedAt:    pgtype.Timestamptz{Time: at, Valid: true},
	})
	require.NoError(t, err)

	assert.Equal(t, id, e.ID)
	assert.Equal(t, ds, e.DatasetID)
	require.NotNil(t, e.VersionID)
	assert.Equal(t, version, *e.VersionID)
	assert.Equal(t, "1.2.0", e.Version)
	assert.Equal(t, "draft", e.Details["status"])
	assert.Empty(t, e.IPAddress)
	assert.Equal(t, at, e.CreatedAt)

	_, err = toAuditEntry(AuditLog{Details: []byte("{")})
	assert.Error(t, err)
}
