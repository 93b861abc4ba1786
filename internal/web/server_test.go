package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/statspub/internal/config"
	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/memstore"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *memstore.Store
	server  *Server
	dataset uuid.UUID
	byNum   map[string]core.DatasetVersion
}

func testConfig() config.Config {
	return config.Config{
		Store:    config.StoreConfig{Backend: config.BackendMemory},
		Security: config.SecurityConfig{CORSAllowedOrigins: []string{"*"}, EnableCSP: true},
		Audit:    config.AuditConfig{RetentionDays: 30},
	}
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	store := memstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := core.NewService(store, core.Options{
		Logger: logger,
		Now:    func() time.Time { return testNow },
	})
	require.NoError(t, err)

	return &testEnv{
		store:   store,
		server:  NewServer(svc, cfg, logger),
		dataset: uuid.New(),
		byNum:   map[string]core.DatasetVersion{},
	}
}

func (e *testEnv) add(t *testing.T, number string, status core.Status, prev string) core.DatasetVersion {
	t.Helper()
	n, err := versioning.ParseNumber(number)
	require.NoError(t, err)
	v := core.DatasetVersion{
		ID:        uuid.New(),
		DatasetID: e.dataset,
		Number:    n,
		Status:    status,
		CreatedAt: testNow,
	}
	if prev != "" {
		p := e.byNum[prev]
		v.PreviousVersionID = &p.ID
	}
	require.NoError(t, e.store.AddVersion(v))
	e.byNum[number] = v
	return v
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestListVersions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusPublished, "")
	env.add(t, "1.1.0", core.StatusDeprecated, "1.0.0")
	env.add(t, "1.2.0", core.StatusDraft, "1.1.0")

	rec := env.do(t, http.MethodGet, "/api/v1/datasets/"+env.dataset.String()+"/versions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[versionsResponse](t, rec)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, "1.1.0", got.Versions[0].Number.String())
	assert.Equal(t, "1.0.0", got.Versions[1].Number.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListVersions_InvalidDataset(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/v1/datasets/not-a-uuid/versions", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "VER001", decode[ErrorResponse](t, rec).Code)
}

func TestResolveVersion(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusPublished, "")
	env.add(t, "1.1.0", core.StatusPublished, "1.0.0")
	env.add(t, "2.0.0", core.StatusDraft, "1.1.0")

	tests := []struct {
		token    string
		want     int
		wantNum  string
		wantCode string
	}{
		{token: "1.*", want: http.StatusOK, wantNum: "1.1.0"},
		{token: "v1.0", want: http.StatusOK, wantNum: "1.0.0"},
		{token: "*", want: http.StatusOK, wantNum: "1.1.0"},
		{token: "2.*", want: http.StatusNotFound, wantCode: "VER001"},
		{token: "1.x", want: http.StatusNotFound, wantCode: "VER001"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/datasets/"+env.dataset.String()+"/versions/"+tt.token, "", nil)
			require.Equal(t, tt.want, rec.Code)
			if tt.wantNum != "" {
				assert.Equal(t, tt.wantNum, decode[core.DatasetVersion](t, rec).Number.String())
			} else {
				assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
			}
		})
	}
}

func TestDeletionPlan(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusPublished, "")
	env.add(t, "1.1.0", core.StatusCancelled, "1.0.0")
	env.add(t, "1.2.0", core.StatusDraft, "1.1.0")

	rec := env.do(t, http.MethodGet, "/api/admin/datasets/"+env.dataset.String()+"/deletion-plan", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	plan := decode[core.DeletionPlan](t, rec)
	require.Len(t, plan.Versions, 2)
	assert.Equal(t, "1.2.0", plan.Versions[0].Number.String())
	assert.Equal(t, "1.1.0", plan.Versions[1].Number.String())
	assert.Equal(t, 1, plan.Lineages)
}

func TestDeletionPlan_InvalidDataset(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/admin/datasets/xyz/deletion-plan", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)
}

func TestDeleteVersions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusPublished, "")
	env.add(t, "1.1.0", core.StatusDraft, "1.0.0")
	env.add(t, "1.2.0", core.StatusFailed, "1.1.0")

	rec := env.do(t, http.MethodDelete, "/api/admin/datasets/"+env.dataset.String()+"/versions", "",
		map[string]string{"User-Agent": "admin-test"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[core.DeletionResult](t, rec)
	assert.True(t, result.Success)
	require.Len(t, result.Deleted, 2)
	assert.Equal(t, "1.2.0", result.Deleted[0].Version)
	assert.Equal(t, "1.1.0", result.Deleted[1].Version)

	remaining, err := env.store.ListDatasetVersions(context.Background(), env.dataset)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "1.0.0", remaining[0].Number.String())

	entries := env.store.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, core.ActionVersionDelete, entries[0].Action)
	assert.Equal(t, "admin-test", entries[0].UserAgent)
	assert.NotEmpty(t, entries[0].RequestID)
}

func TestDeleteVersions_Rejected(t *testing.T) {
	env := newTestEnv(t, testConfig())
	published := env.add(t, "1.0.0", core.StatusPublished, "")
	draft := env.add(t, "1.1.0", core.StatusDraft, "1.0.0")
	env.add(t, "1.2.0", core.StatusDraft, "1.1.0")
	path := "/api/admin/datasets/" + env.dataset.String() + "/versions"

	tests := []struct {
		name     string
		body     string
		want     int
		wantCode string
	}{
		{
			name:     "published version",
			body:     `{"versionIds":["` + published.ID.String() + `"]}`,
			want:     http.StatusConflict,
			wantCode: "DEL001",
		},
		{
			name:     "kept successor",
			body:     `{"versionIds":["` + draft.ID.String() + `"]}`,
			want:     http.StatusConflict,
			wantCode: "DEL002",
		},
		{
			name:     "unknown version",
			body:     `{"versionIds":["` + uuid.NewString() + `"]}`,
			want:     http.StatusNotFound,
			wantCode: "VER001",
		},
		{
			name:     "malformed body",
			body:     `{"versionIds":`,
			want:     http.StatusBadRequest,
			wantCode: "VAL001",
		},
		{
			name:     "unknown field",
			body:     `{"ids":[]}`,
			want:     http.StatusBadRequest,
			wantCode: "VAL001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodDelete, path, tt.body, map[string]string{"Content-Type": "application/json"})
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}

	remaining, err := env.store.ListDatasetVersions(context.Background(), env.dataset)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func (e *testEnv) putMapping(t *testing.T) core.DatasetVersion {
	t.Helper()
	src := e.add(t, "1.4.2", core.StatusPublished, "")
	dst := e.add(t, "1.5.0", core.StatusMapping, "1.4.2")
	e.store.PutMapping(core.MappingRecord{
		SourceVersionID: src.ID,
		TargetVersionID: dst.ID,
		Plan: mapping.Plan{
			Locations: mapping.LocationPlan{Levels: map[string]*mapping.LevelMapping{
				"REGION": {
					Candidates: []string{"REGION"},
					Options: map[string]*mapping.OptionMapping{
						"north":   {Type: mapping.TypeAutoMapped, Target: "north"},
						"<south>": {Type: mapping.TypeNone},
					},
				},
			}},
		},
	})
	return dst
}

func TestMappingSummary(t *testing.T) {
	env := newTestEnv(t, testConfig())
	dst := env.putMapping(t)

	rec := env.do(t, http.MethodGet, "/api/admin/dataset-versions/"+dst.ID.String()+"/mapping/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	review := decode[core.MappingReview](t, rec)
	assert.True(t, review.NeedsManualReview)
	assert.False(t, review.HasBreakingChanges)
	assert.Equal(t, "1.5.0", review.SuggestedVersion.String())
	assert.Equal(t, 1, review.Tally.AutoMapped)
	assert.Len(t, review.Summary.Locations, 2)
}

func TestMappingSummary_NotFound(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/api/admin/dataset-versions/"+uuid.NewString()+"/mapping/summary", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MAP002", decode[ErrorResponse](t, rec).Code)
}

func TestMappingPage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	dst := env.putMapping(t)

	rec := env.do(t, http.MethodGet, "/admin/dataset-versions/"+dst.ID.String()+"/mapping", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "1 auto-mapped, 1 need review")
	assert.Contains(t, body, "Needs manual review")
	assert.Contains(t, body, "1.5.0")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestMappingPage_Missing(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/admin/dataset-versions/"+uuid.NewString()+"/mapping", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "MAP002")
}

func TestPurgeAuditLog(t *testing.T) {
	env := newTestEnv(t, testConfig())
	require.NoError(t, env.store.InsertAuditEntry(context.Background(), core.AuditEntry{
		ID:        uuid.New(),
		Action:    core.ActionVersionDelete,
		DatasetID: env.dataset,
		CreatedAt: testNow.AddDate(0, 0, -90),
	}))

	rec := env.do(t, http.MethodPost, "/api/admin/audit-log/purge", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[purgeResponse](t, rec)
	assert.Equal(t, 30, got.RetentionDays)
	assert.EqualValues(t, 1, got.Purged)

	rec = env.do(t, http.MethodPost, "/api/admin/audit-log/purge?retentionDays=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/audit-log/purge?retentionDays=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	env := newTestEnv(t, cfg)

	admin := "/api/admin/datasets/" + env.dataset.String() + "/deletion-plan"

	rec := env.do(t, http.MethodGet, admin, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, admin, "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The public API needs no key.
	rec = env.do(t, http.MethodGet, "/api/v1/datasets/"+env.dataset.String()+"/versions", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1, AdminRequestsPerMinute: 1}
	env := newTestEnv(t, cfg)
	path := "/api/v1/datasets/" + env.dataset.String() + "/versions"

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, "", nil).Code)

	rec := env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodOptions, "/api/v1/datasets/"+env.dataset.String()+"/versions", "", map[string]string{
		"Origin":                        "https://example.org",
		"Access-Control-Request-Method": http.MethodGet,
	})

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig())

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, config.BackendMemory, got.Store)
	assert.Equal(t, core.DefaultMaxConcurrentDeletions, got.Deletions.MaxConcurrent)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.ErrNotFound(core.ErrVersionNotFound, "x"), http.StatusNotFound},
		{"conflict", core.ErrConflict(core.ErrVersionPublished, "x"), http.StatusConflict},
		{"validation", core.ErrValidation("x"), http.StatusBadRequest},
		{"busy", core.ErrTooManyDeletions, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"bad plan", &mapping.InvalidPlanShapeError{Path: "p", Reason: "r"}, http.StatusInternalServerError},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestAuditLog(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusDraft, "")
	env.add(t, "1.1.0", core.StatusDraft, "1.0.0")

	path := "/api/admin/datasets/" + env.dataset.String() + "/versions"
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, path, "", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/admin/audit-log?limit=1&action=version_delete&datasetId="+env.dataset.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[core.AuditLogResult](t, rec)
	assert.EqualValues(t, 2, got.TotalCount)
	assert.Len(t, got.Entries, 1)

	for _, query := range []string{"datasetId=nope", "since=yesterday", "limit=-5"} {
		t.Run(query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/admin/audit-log?"+query, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestAuditLogExport(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.add(t, "1.0.0", core.StatusFailed, "")
	path := "/api/admin/datasets/" + env.dataset.String() + "/versions"
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, path, "", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/admin/audit-log/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
}
