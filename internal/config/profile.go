package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dataclean/internal/core"
)

// Profile is a named set of cleaning overrides loaded from YAML.
// Unset fields keep the values of the options they are applied to.
//
//	name: crm-export
//	delimiter: ";"
//	apply_crm_mappings: false
//	export_formats: [csv, json]
//	limits:
//	  excel_rows: 20000
type Profile struct {
	Name             string             `yaml:"name"`
	Delimiter        *string            `yaml:"delimiter"`
	NormalizeHeaders *bool              `yaml:"normalize_headers"`
	DropEmptyRows    *bool              `yaml:"drop_empty_rows"`
	ApplyCRMMappings *bool              `yaml:"apply_crm_mappings"`
	FileType         *string            `yaml:"file_type"`
	SheetName        *string            `yaml:"sheet_name"`
	ChunkSize        *int               `yaml:"chunk_size"`
	ExportFormats    []string           `yaml:"export_formats"`
	Limits           *core.ExportLimits `yaml:"limits"`
}

// LoadProfile reads and validates a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile. Unknown keys are rejected and an
// empty document yields an empty profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if p.Delimiter != nil && utf8.RuneCountInString(*p.Delimiter) != 1 {
		return fmt.Errorf("profile %q: delimiter %q must be a single character", p.Name, *p.Delimiter)
	}
	if p.FileType != nil && *p.FileType != "" {
		if _, err := core.ParseFileType(*p.FileType); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	if p.ChunkSize != nil && *p.ChunkSize <= 0 {
		return fmt.Errorf("profile %q: chunk_size must be positive", p.Name)
	}
	for _, f := range p.ExportFormats {
		if len(core.ParseFormats(f)) == 0 {
			return fmt.Errorf("profile %q: unknown export format %q", p.Name, f)
		}
	}
	return nil
}

// Options applies the profile on top of base.
func (p *Profile) Options(base core.Options) core.Options {
	if p == nil {
		return base
	}
	opts := base
	if p.Delimiter != nil {
		opts.Delimiter = []rune(*p.Delimiter)[0]
	}
	if p.NormalizeHeaders != nil {
		opts.NormalizeHeaders = *p.NormalizeHeaders
	}
	if p.DropEmptyRows != nil {
		opts.DropEmptyRows = *p.DropEmptyRows
	}
	if p.ApplyCRMMappings != nil {
		opts.ApplyCRMMappings = *p.ApplyCRMMappings
	}
	if p.FileType != nil {
		opts.FileType = core.FileType(*p.FileType)
	}
	if p.SheetName != nil {
		opts.SheetName = *p.SheetName
	}
	if p.ChunkSize != nil {
		opts.ChunkSize = *p.ChunkSize
	}
	if len(p.ExportFormats) > 0 {
		formats := make([]core.Format, 0, len(p.ExportFormats))
		for _, f := range p.ExportFormats {
			formats = append(formats, core.ParseFormats(f)...)
		}
		opts.ExportFormats = formats
	}
	if p.Limits != nil {
		l := opts.Limits
		if p.Limits.ExcelRows > 0 {
			l.ExcelRows = p.Limits.ExcelRows
		}
		if p.Limits.JSONRows > 0 {
			l.JSONRows = p.Limits.JSONRows
		}
		if p.Limits.ColumnExcelRows > 0 {
			l.ColumnExcelRows = p.Limits.ColumnExcelRows
		}
		if p.Limits.ColumnJSONRows > 0 {
			l.ColumnJSONRows = p.Limits.ColumnJSONRows
		}
		opts.Limits = l
	}
	return opts
}
