package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/david/tender-scout/internal/app"
	"github.com/david/tender-scout/internal/cache"
)

func recommendationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommendations",
		Short: "Show today's recommendations, refreshing them at most once a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			local := cfg
			// An in-memory cache would never survive between invocations.
			if local.Cache.Backend == "memory" {
				local.Cache.Backend = "sqlite"
			}

			deps, err := app.Build(cmd.Context(), local)
			if err != nil {
				return err
			}
			defer deps.Close()

			return renderRecommendation(cmd.OutOrStdout(), deps.Daily.Load(cmd.Context()))
		},
	}
}

func renderRecommendation(w io.Writer, rec cache.Recommendation) error {
	if !rec.Available {
		_, err := fmt.Fprintln(w, "No recommendations available right now.")
		return err
	}

	source := "fresh from upstream"
	if rec.FromCache {
		source = "cached"
	}
	fmt.Fprintf(w, "Recommendations (%s, valid until %s)\n", source, rec.ValidUntil.Local().Format("2006-01-02 15:04"))

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, rec.Payload, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(rec.Payload)
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}
