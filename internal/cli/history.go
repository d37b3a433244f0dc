package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		dsn  string
		opts history.ListOptions
		ft   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded cleaning runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileType, err := core.ParseFileType(ft)
			if err != nil {
				return err
			}
			opts.FileType = fileType

			store, err := history.Open(cmd.Context(), dsn, history.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID, r.FileName, string(r.FileType),
					strconv.Itoa(r.RowsIn), strconv.Itoa(r.RowsOut), r.CRMDetected,
				}
			}
			return writeTable(a.stdout, []string{"started", "run", "file", "type", "in", "out", "crm"}, rows)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&dsn, "history", os.Getenv("HISTORY_DSN"), "history store (postgres URL or SQLite path)")
	fl.StringVar(&ft, "type", "", "only runs of this input type")
	fl.StringVar(&opts.CRM, "crm", "", "only runs that detected this CRM dialect")
	fl.IntVar(&opts.Limit, "limit", history.DefaultListLimit, "maximum runs to list")
	return cmd
}
