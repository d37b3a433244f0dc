package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
	"github.com/JonMunkholm/dataclean/internal/logging"
)

type cleanFlags struct {
	outDir       string
	delimiter    string
	fileType     string
	sheet        string
	formats      string
	chunkSize    int
	noNormalize  bool
	keepEmpty    bool
	noCRM        bool
	historyDSN   string
	reportFormat string
}

func (a *app) newCleanCmd() *cobra.Command {
	f := &cleanFlags{}
	cmd := &cobra.Command{
		Use:   "clean <file>...",
		Short: "Clean files and write the export bundle",
		Long: `Clean reads each file, repairs and filters its rows, and writes the
cleaned CSV, JSON, spreadsheet and per-column files into the output
directory, one subdirectory per input file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.baseOptions()
			if err != nil {
				return err
			}
			if opts, err = f.apply(cmd, opts); err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), f.historyDSN, history.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			reports := make([]core.Report, 0, len(args))
			for _, path := range args {
				report, err := a.cleanOne(cmd.Context(), path, f.outDir, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := store.Save(cmd.Context(), report); err != nil {
					logging.WithFields(cmd.Context(), "run_id", report.RunID).Warn("failed to record run", "error", err)
				}
				reports = append(reports, report)
			}

			if f.reportFormat == "json" {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, r := range reports {
				if err := printReport(a, r); err != nil {
					return err
				}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.outDir, "out", "o", "cleaned", "output directory")
	fl.StringVarP(&f.delimiter, "delimiter", "d", ",", "CSV field separator")
	fl.StringVar(&f.fileType, "type", "", "input type: csv, tsv, json, excel (default: detect)")
	fl.StringVar(&f.sheet, "sheet", "", "spreadsheet sheet name (default: active sheet)")
	fl.StringVar(&f.formats, "formats", "", "export formats: csv,json,excel,columns (default: all)")
	fl.IntVar(&f.chunkSize, "chunk-size", core.DefaultChunkSize, "rows per batch for large inputs")
	fl.BoolVar(&f.noNormalize, "no-normalize-headers", false, "keep header text instead of slugifying")
	fl.BoolVar(&f.keepEmpty, "keep-empty-rows", false, "keep rows whose cells are all blank")
	fl.BoolVar(&f.noCRM, "no-crm", false, "skip CRM dialect detection")
	fl.StringVar(&f.historyDSN, "history", os.Getenv("HISTORY_DSN"), "record runs in this history store")
	fl.StringVar(&f.reportFormat, "report", "table", "report output: table or json")
	return cmd
}

// apply overlays flags the user set on opts. Unset flags keep the
// profile's values.
func (f *cleanFlags) apply(cmd *cobra.Command, opts core.Options) (core.Options, error) {
	changed := cmd.Flags().Changed

	if changed("delimiter") {
		if utf8.RuneCountInString(f.delimiter) != 1 {
			return opts, core.InvalidOption("delimiter", f.delimiter, "must be a single character")
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(f.delimiter)
	}
	if changed("type") {
		ft, err := core.ParseFileType(f.fileType)
		if err != nil {
			return opts, err
		}
		opts.FileType = ft
	}
	if changed("sheet") {
		opts.SheetName = f.sheet
	}
	if changed("formats") {
		formats := core.ParseFormats(f.formats)
		if len(formats) == 0 {
			return opts, core.InvalidOption("formats", f.formats, "use csv, json, excel or columns")
		}
		opts.ExportFormats = formats
	}
	if changed("chunk-size") {
		if f.chunkSize <= 0 {
			return opts, core.InvalidOption("chunk-size", strconv.Itoa(f.chunkSize), "must be positive")
		}
		opts.ChunkSize = f.chunkSize
	}
	if changed("no-normalize-headers") {
		opts.NormalizeHeaders = !f.noNormalize
	}
	if changed("keep-empty-rows") {
		opts.DropEmptyRows = !f.keepEmpty
	}
	if changed("no-crm") {
		opts.ApplyCRMMappings = !f.noCRM
	}
	if f.reportFormat != "table" && f.reportFormat != "json" {
		return opts, core.InvalidOption("report", f.reportFormat, "use table or json")
	}
	return opts, nil
}

// cleanOne cleans the file at path and writes its bundle under outDir.
func (a *app) cleanOne(ctx context.Context, path, outDir string, opts core.Options) (core.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Report{}, err
	}

	bundle, report, err := a.engine.CleanFile(ctx, data, filepath.Base(path), opts)
	if err != nil {
		return core.Report{}, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Join(outDir, stem)
	if err := writeBundle(dir, stem, bundle, report); err != nil {
		return core.Report{}, err
	}

	logging.WithFields(ctx, "run_id", report.RunID, "file", path).
		Info("cleaned", "rows_in", report.RowsIn, "rows_out", report.RowsOut, "dir", dir)
	return report, nil
}

// writeBundle writes every non-empty output of b into dir.
func writeBundle(dir, stem string, b *core.Bundle, report core.Report) error {
	files := map[string][]byte{}
	if b.CSV != "" {
		files[stem+"_cleaned.csv"] = []byte(b.CSV)
	}
	if b.JSON != "" {
		files[stem+"_cleaned.json"] = []byte(b.JSON)
	}
	if len(b.Excel) > 0 {
		files[stem+"_cleaned.xlsx"] = b.Excel
	}
	for col, cf := range b.Columns {
		name := filepath.Join("columns", core.SlugifyHeader(col))
		if cf.CSV != "" {
			files[name+".csv"] = []byte(cf.CSV)
		}
		if cf.JSON != "" {
			files[name+".json"] = []byte(cf.JSON)
		}
		if len(cf.Excel) > 0 {
			files[name+".xlsx"] = cf.Excel
		}
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	files["report.json"] = append(reportJSON, '\n')

	for name, content := range files {
		target := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// printReport writes the run summary and fix counts as tables.
func printReport(a *app, r core.Report) error {
	crm := r.CRMDetected
	if crm == "" {
		crm = "-"
	}
	fmt.Fprintf(a.stdout, "%s (%s, run %s)\n", r.FileName, r.FileType, r.RunID)

	summary := [][]string{
		{"rows", strconv.Itoa(r.RowsIn), strconv.Itoa(r.RowsOut)},
		{"columns", strconv.Itoa(r.ColumnsIn), strconv.Itoa(r.ColumnsOut)},
	}
	if err := writeTable(a.stdout, []string{"", "in", "out"}, summary); err != nil {
		return err
	}

	fixes := make([][]string, 0, len(r.Fixes))
	for _, kind := range core.FixKinds {
		fixes = append(fixes, []string{kind, strconv.Itoa(r.Fixes[kind])})
	}
	fmt.Fprintf(a.stdout, "\ncrm: %s  chunks: %d  duration: %s\n\n", crm, r.Chunks, r.Duration())
	if err := writeTable(a.stdout, []string{"fix", "count"}, fixes); err != nil {
		return err
	}

	if len(r.HeaderMap) > 0 {
		headers := make([]string, 0, len(r.HeaderMap))
		for h := range r.HeaderMap {
			headers = append(headers, h)
		}
		sort.Strings(headers)
		mapping := make([][]string, 0, len(headers))
		for _, h := range headers {
			if h != r.HeaderMap[h] {
				mapping = append(mapping, []string{h, r.HeaderMap[h]})
			}
		}
		if len(mapping) > 0 {
			fmt.Fprintln(a.stdout)
			if err := writeTable(a.stdout, []string{"header", "renamed to"}, mapping); err != nil {
				return err
			}
		}
	}
	fmt.Fprintln(a.stdout)
	return nil
}
