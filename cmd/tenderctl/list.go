package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/david/tender-scout/internal/amount"
	"github.com/david/tender-scout/internal/app"
	"github.com/david/tender-scout/internal/filter"
	"github.com/david/tender-scout/internal/models"
)

func listCmd() *cobra.Command {
	var (
		query, category      string
		minBudget, maxBudget string
		hideOpen, hideClosed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenders matching the given filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category != "" && !models.ValidCategory(category) {
				return fmt.Errorf("unknown category %q (expected one of %v)", category, models.Categories)
			}

			deps, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			engine := filter.NewEngine(deps.Opportunities)
			patch := filter.Patch{Query: &query, Category: &category}
			if minBudget != "" {
				v := amount.ParseRaw(minBudget)
				patch.MinBudget = &v
			}
			if maxBudget != "" {
				v := amount.ParseRaw(maxBudget)
				patch.MaxBudget = &v
			}
			showOpen, showClosed := !hideOpen, !hideClosed
			patch.ShowOpen, patch.ShowClosed = &showOpen, &showClosed
			engine.SetCriteria(patch)

			renderOpportunities(cmd.OutOrStdout(), engine)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "text matched against title, buyer and id")
	cmd.Flags().StringVar(&category, "category", "", "main category (Bienes, Servicios, Obras)")
	cmd.Flags().StringVar(&minBudget, "min", "", "minimum budget, e.g. 10.000")
	cmd.Flags().StringVar(&maxBudget, "max", "", "maximum budget")
	cmd.Flags().BoolVar(&hideOpen, "hide-open", false, "hide open tenders")
	cmd.Flags().BoolVar(&hideClosed, "hide-closed", false, "hide closed tenders")
	return cmd
}

func renderOpportunities(w io.Writer, engine *filter.Engine) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Title", "Category", "Status", "Budget", "Buyer"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 48},
		{Name: "Budget", Align: text.AlignRight},
	})

	filtered := engine.Filtered()
	for _, o := range filtered {
		t.AppendRow(table.Row{o.ExternalID, o.Title, o.MainCategory, o.Status, amount.FormatCurrency(o.BudgetAmount), o.BuyerName})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d shown", len(filtered)), "",
		fmt.Sprintf("%d open / %d closed", len(engine.OpenSubset()), len(engine.ClosedSubset())), "", ""})
	t.Render()
}
