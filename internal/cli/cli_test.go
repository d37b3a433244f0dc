package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataclean/internal/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestClean_WritesBundle(t *testing.T) {
	in := writeInput(t, "leads.csv", "First Name,Amount\n Ann ,\"1,500\"\nAnn,1500\n")
	out := t.TempDir()

	stdout, err := run(t, "clean", in, "--out", out)
	require.NoError(t, err)

	dir := filepath.Join(out, "leads")
	csv, err := os.ReadFile(filepath.Join(dir, "leads_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, "first_name,amount\nAnn,1500\n", string(csv))

	for _, name := range []string{"leads_cleaned.json", "leads_cleaned.xlsx", "report.json", "columns/first_name.csv", "columns/amount.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	var report core.Report
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, 1, report.DuplicatesRemoved)

	assert.Contains(t, stdout, "leads.csv (csv")
	assert.Contains(t, stdout, "duplicates_removed")
	assert.Contains(t, stdout, "First Name  first_name")
}

func TestClean_FlagsAndJSONReport(t *testing.T) {
	in := writeInput(t, "data.txt", "A;B\n1;2\n;\n")
	out := t.TempDir()

	stdout, err := run(t, "clean", in, "-o", out, "-d", ";", "--type", "csv",
		"--formats", "csv", "--keep-empty-rows", "--report", "json")
	require.NoError(t, err)

	var reports []core.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &reports))
	require.Len(t, reports, 1)
	// The blank row survives the empty-row drop but not the irrelevance filter.
	assert.Equal(t, 1, reports[0].RowsOut)
	assert.Equal(t, 0, reports[0].Fixes[core.FixDroppedEmptyRows])
	assert.Equal(t, 1, reports[0].Fixes[core.FixIrrelevantRowsRemoved])

	csv, err := os.ReadFile(filepath.Join(out, "data", "data_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(csv))
	assert.NoFileExists(t, filepath.Join(out, "data", "data_cleaned.json"))
}

func TestClean_Profile(t *testing.T) {
	profile := writeInput(t, "p.yaml", "normalize_headers: false\nexport_formats: [csv]\n")
	in := writeInput(t, "x.csv", "Some Header\nv\n")
	out := t.TempDir()

	_, err := run(t, "clean", in, "-o", out, "--profile", profile)
	require.NoError(t, err)

	csv, err := os.ReadFile(filepath.Join(out, "x", "x_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Some Header\nv\n", string(csv))
}

func TestClean_Errors(t *testing.T) {
	good := writeInput(t, "a.csv", "a\n1\n")
	empty := writeInput(t, "empty.csv", "")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad delimiter", []string{"clean", good, "-d", "ab"}, core.ErrInvalidInput},
		{"bad type", []string{"clean", good, "--type", "pdf"}, core.ErrUnsupportedFeature},
		{"bad formats", []string{"clean", good, "--formats", "pdf"}, core.ErrInvalidInput},
		{"bad chunk", []string{"clean", good, "--chunk-size", "0"}, core.ErrInvalidInput},
		{"empty input", []string{"clean", empty, "-o", t.TempDir()}, core.ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := run(t, "clean")
	assert.Error(t, err, "file argument is required")
}

func TestHistory_RecordsRuns(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "runs.db")
	in := writeInput(t, "a.csv", "a\nvalue\n")

	_, err := run(t, "clean", in, "-o", t.TempDir(), "--history", dsn, "--formats", "csv")
	require.NoError(t, err)

	stdout, err := run(t, "history", "--history", dsn)
	require.NoError(t, err)
	assert.Contains(t, stdout, "a.csv")

	stdout, err = run(t, "history", "--history", dsn, "--type", "json")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "a.csv")
}

func TestHistory_Disabled(t *testing.T) {
	_, err := run(t, "history", "--history", "")
	assert.Error(t, err)
}

func TestDialects(t *testing.T) {
	stdout, err := run(t, "dialects")
	require.NoError(t, err)
	for _, d := range core.Dialects() {
		assert.Contains(t, stdout, d.Name)
	}

	stdout, err = run(t, "dialects", "salesforce")
	require.NoError(t, err)
	assert.Contains(t, stdout, "firstname")

	_, err = run(t, "dialects", "zoho")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"name", "n"}, [][]string{
		{"日本", "1"},
		{"abc", "22"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "name  n", lines[0])
	assert.Equal(t, "----  --", lines[1])
	assert.Equal(t, "日本  1", lines[2])
	assert.Equal(t, "abc   22", lines[3])
}
