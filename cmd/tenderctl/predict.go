package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/david/tender-scout/internal/amount"
	"github.com/david/tender-scout/internal/app"
	"github.com/david/tender-scout/internal/models"
	"github.com/david/tender-scout/internal/predict"
)

func predictCmd() *cobra.Command {
	var bid, start, end string

	cmd := &cobra.Command{
		Use:   "predict <tender-id>",
		Short: "Estimate the win probability of a bid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			var opp *models.Opportunity
			for i := range deps.Opportunities {
				if deps.Opportunities[i].ExternalID == args[0] {
					opp = &deps.Opportunities[i]
					break
				}
			}
			if opp == nil {
				return fmt.Errorf("tender %q not found", args[0])
			}

			opts := predict.StartOptions{}
			if bid != "" {
				opts.BidText = &bid
			}
			if opts.ContractStart, err = parseFlagDate(start); err != nil {
				return err
			}
			if opts.ContractEnd, err = parseFlagDate(end); err != nil {
				return err
			}

			wf := predict.NewWorkflow(deps.Client, app.PredictionConfig(cfg))
			wf.Open(*opp)
			return runPrediction(cmd, wf, opts)
		},
	}

	cmd.Flags().StringVar(&bid, "bid", "", "bid amount (defaults to 95% of the budget)")
	cmd.Flags().StringVar(&start, "start", "", "contract start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "contract end date (YYYY-MM-DD)")
	return cmd
}

func parseFlagDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d.Time, nil
}

// runPrediction drives wf to a terminal state, mirroring progress on a bar.
// Interrupting the command cancels the request.
func runPrediction(cmd *cobra.Command, wf *predict.Workflow, opts predict.StartOptions) error {
	out := cmd.OutOrStdout()
	bar := newProgressBar(out)

	done := make(chan predict.Snapshot, 1)
	var once sync.Once
	wf.Subscribe(func(s predict.Snapshot) {
		if s.State == predict.StateRequesting {
			bar.Describe(s.Message)
			_ = bar.Set(int(s.Progress))
		}
		if s.State.Terminal() {
			once.Do(func() { done <- s })
		}
	})

	if err := wf.Start(cmd.Context(), opts); err != nil {
		return err
	}

	var final predict.Snapshot
	select {
	case final = <-done:
	case <-cmd.Context().Done():
		wf.Cancel()
		final = <-done
	}
	_ = bar.Close()
	fmt.Fprintln(out)

	return renderPrediction(out, final)
}

func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func renderPrediction(w io.Writer, s predict.Snapshot) error {
	switch s.State {
	case predict.StateCompleted:
		fmt.Fprintf(w, "Tender:          %s\n", s.Opportunity.Title)
		fmt.Fprintf(w, "Bid:             %s\n", amount.FormatCurrency(s.BidAmount))
		fmt.Fprintf(w, "Contract days:   %d\n", s.ContractDays)
		fmt.Fprintf(w, "Win probability: %.1f%%\n", s.Result.Probability*100)
		fmt.Fprintf(w, "\n%s\n", s.Result.Recommendation)
		return nil
	case predict.StateCancelled:
		fmt.Fprintln(w, s.Notice)
		return nil
	default:
		return fmt.Errorf("prediction failed: %s", s.Error)
	}
}
