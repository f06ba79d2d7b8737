package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/david/tender-scout/internal/amount"
)

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <amount>",
		Short: "Normalize a free-form amount the way the bid field does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, display := amount.Normalize(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "value:     %.2f\n", value)
			fmt.Fprintf(out, "display:   %s\n", display)
			fmt.Fprintf(out, "formatted: %s\n", amount.FormatCurrency(value))
			return nil
		},
	}
}
