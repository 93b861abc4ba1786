package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/statspub/internal/lineage"
)

const versionsYAML = `
- id: a
  version: 1.0.0
  status: published
- id: b
  version: "1.1"
  status: published
- id: c
  version: 1.1.1
- id: d
  version: v2.0.0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolve(t *testing.T) {
	path := writeFile(t, "versions.yaml", versionsYAML)

	tests := []struct {
		token string
		want  string
	}{
		{"1.*", "c"},
		{"1.1", "c"},
		{"1.0", "a"},
		{"*", "d"},
		{"v2", "d"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			out, err := run(t, "", "resolve", tt.token, "--versions", path, "-o", "json")
			require.NoError(t, err)

			var got versionEntry
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	path := writeFile(t, "versions.yaml", versionsYAML)

	for _, token := range []string{"3.*", "1.x", "1.2.3.4"} {
		t.Run(token, func(t *testing.T) {
			_, err := run(t, "", "resolve", token, "--versions", path)
			require.Error(t, err)
			assert.ErrorIs(t, err, errNotFound)
			assert.Contains(t, err.Error(), "not found")
		})
	}
}

func TestResolve_Stdin(t *testing.T) {
	out, err := run(t, `[{"id":"x","version":"0.9.0"},{"id":"y","version":"0.10.0"}]`,
		"resolve", "0.*", "--versions", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "0.10.0")
}

func TestResolve_BadVersionInFile(t *testing.T) {
	path := writeFile(t, "versions.yaml", "- id: a\n  version: 1.*\n")

	_, err := run(t, "", "resolve", "*", "--versions", path)
	assert.Error(t, err)
}

func TestDeletionOrder(t *testing.T) {
	path := writeFile(t, "refs.json", `[
		{"id": "v3", "previousVersionId": "v2"},
		{"id": "x1"},
		{"id": "v1"},
		{"id": "v2", "previousVersionId": "v1"}
	]`)

	out, err := run(t, "", "deletion-order", path, "-o", "json")
	require.NoError(t, err)

	var got orderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Lineages)

	ids := make([]string, len(got.Order))
	for i, r := range got.Order {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"v3", "v2", "v1", "x1"}, ids)
}

func TestDeletionOrder_Cycle(t *testing.T) {
	path := writeFile(t, "refs.yaml", "- id: a\n  previousVersionId: b\n- id: b\n  previousVersionId: a\n")

	out, err := run(t, "", "deletion-order", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, lineage.ErrCyclicVersionChain)
	assert.Empty(t, out)
}

func TestDeletionOrder_Empty(t *testing.T) {
	path := writeFile(t, "refs.yaml", "")

	out, err := run(t, "", "deletion-order", path, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"order": []`)
}

const planYAML = `
locations:
  levels:
    REGION:
      candidates: [REGION]
      options:
        north: {type: AutoMapped, target: north}
        south: {type: AutoNone}
filters:
  filters:
    sex:
      type: AutoMapped
      options:
        m: {type: ManualMapped, target: male}
`

func TestMappingSummary(t *testing.T) {
	path := writeFile(t, "plan.yaml", planYAML)

	out, err := run(t, "", "mapping-summary", path, "--from", "1.4.2", "-o", "json")
	require.NoError(t, err)

	var got mappingOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.NeedsManualReview)
	assert.True(t, got.HasBreakingChanges)
	require.NotNil(t, got.SuggestedVersion)
	assert.Equal(t, "2.0.0", got.SuggestedVersion.String())
	assert.Equal(t, 3, got.Tally.Options)
	assert.Len(t, got.Summary.Locations, 2)
	assert.Len(t, got.Summary.Filters, 1)
}

func TestMappingSummary_Table(t *testing.T) {
	path := writeFile(t, "plan.yaml", planYAML)

	out, err := run(t, "", "mapping-summary", path)
	require.NoError(t, err)

	assert.Contains(t, out, "1 auto-mapped, 1 need review")
	assert.Contains(t, out, "breaking changes: true")
	assert.NotContains(t, out, "suggested version")
}

func TestMappingSummary_InvalidShape(t *testing.T) {
	path := writeFile(t, "plan.yaml", "filters:\n  filters:\n    sex:\n      options:\n        m: {type: AutoMapped}\n")

	_, err := run(t, "", "mapping-summary", path)
	assert.Error(t, err)
}

func TestUnsupportedOutput(t *testing.T) {
	_, err := run(t, "", "version", "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestMigrate_RejectsUnknownCommand(t *testing.T) {
	_, err := run(t, "", "migrate", "sideways", "--database-url", "postgres://localhost/none")
	assert.Error(t, err)
}
