package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataclean/internal/core"
)

func TestParseProfile_Overrides(t *testing.T) {
	p, err := ParseProfile([]byte(`
name: crm-export
delimiter: ";"
apply_crm_mappings: false
chunk_size: 250
export_formats: [csv, json]
limits:
  excel_rows: 20
`))
	require.NoError(t, err)
	assert.Equal(t, "crm-export", p.Name)

	opts := p.Options(core.DefaultOptions())
	assert.Equal(t, ';', opts.Delimiter)
	assert.False(t, opts.ApplyCRMMappings)
	assert.True(t, opts.DropEmptyRows, "unset fields keep the base value")
	assert.Equal(t, 250, opts.ChunkSize)
	assert.Equal(t, []core.Format{core.FormatCSV, core.FormatJSON}, opts.ExportFormats)
	assert.Equal(t, 20, opts.Limits.ExcelRows)
	assert.Equal(t, core.DefaultExportLimits().JSONRows, opts.Limits.JSONRows)
}

func TestParseProfile_Empty(t *testing.T) {
	p, err := ParseProfile(nil)
	require.NoError(t, err)

	base := core.DefaultOptions()
	assert.Equal(t, base, p.Options(base))
}

func TestParseProfile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "delimeter: ','"},
		{"long delimiter", "delimiter: '::'"},
		{"bad file type", "file_type: parquet"},
		{"bad chunk size", "chunk_size: 0"},
		{"bad format", "export_formats: [pdf]"},
		{"malformed", "delimiter: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNilProfileOptions(t *testing.T) {
	var p *Profile
	base := core.DefaultOptions()
	assert.Equal(t, base, p.Options(base))
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("file_type: tsv\nsheet_name: Data\n"), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	opts := p.Options(core.DefaultOptions())
	assert.Equal(t, core.FileTSV, opts.FileType)
	assert.Equal(t, "Data", opts.SheetName)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
