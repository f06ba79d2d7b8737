package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/david/tender-scout/internal/app"
	"github.com/david/tender-scout/internal/db"
	"github.com/david/tender-scout/internal/ingest"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a JSON or YAML tender export into PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opps, report, err := ingest.LoadFile(args[0])
			if err != nil {
				return err
			}

			deps := &app.Deps{Config: cfg}
			defer deps.Close()
			pool, err := deps.Pool(ctx)
			if err != nil {
				return err
			}

			store := db.NewStore(pool)
			written, err := store.UpsertOpportunities(ctx, opps)
			if err != nil {
				return err
			}
			counts, err := store.CountByStatus(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d tenders (%d duplicates, %d invalid skipped)\n", written, report.Duplicates, report.Invalid)

			statuses := make([]string, 0, len(counts))
			for s := range counts {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.AppendHeader(table.Row{"Status", "Tenders"})
			for _, s := range statuses {
				t.AppendRow(table.Row{s, counts[s]})
			}
			t.Render()
			return nil
		},
	}
}
