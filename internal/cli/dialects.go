package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/core"
)

func (a *app) newDialectsCmd() *cobra.Command {
	var fields bool
	cmd := &cobra.Command{
		Use:   "dialects [name]",
		Short: "List CRM export dialects and their field mappings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				d, ok := core.GetDialect(args[0])
				if !ok {
					return core.InvalidOption("dialect", args[0], "see cleanctl dialects")
				}
				return writeFields(a, d)
			}

			rows := make([][]string, 0, core.DialectCount())
			for _, d := range core.Dialects() {
				rows = append(rows, []string{
					d.Name, d.Label, strconv.Itoa(d.Priority),
					strconv.Itoa(len(d.Fields)), strings.Join(d.Indicators, ", "),
				})
			}
			if err := writeTable(a.stdout, []string{"name", "label", "priority", "fields", "indicators"}, rows); err != nil {
				return err
			}
			if fields {
				for _, d := range core.Dialects() {
					if err := writeFields(a, d); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fields, "fields", false, "also print every dialect's field table")
	return cmd
}

func writeFields(a *app, d core.Dialect) error {
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, d.Fields[k]}
	}
	if _, err := a.stdout.Write([]byte("\n" + d.Label + "\n")); err != nil {
		return err
	}
	return writeTable(a.stdout, []string{"export header", "field"}, rows)
}
