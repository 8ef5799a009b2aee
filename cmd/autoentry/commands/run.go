package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hmis-autoentry/internal/components/serviceutil"
	"hmis-autoentry/internal/report"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runFile      *string
	runLocation  *string
	runAutomate  *bool
	runManual    *bool
	runListItems *bool
)

func init() {
	runFile = runCmd.Flags().StringP("file", "f", "", "The report by client (or failure sheet) to read.")
	runLocation = runCmd.Flags().StringP("location", "l", "ORL", "The outreach location, ORL or SFD.")
	runAutomate = runCmd.Flags().BoolP("automate", "a", false, "Enter the clients into HMIS, the ones that fail are written to the failure sheet.")
	runManual = runCmd.Flags().BoolP("manual", "m", false, "Write a readable sheet for entering clients by hand.")
	runListItems = runCmd.Flags().Bool("list-items", false, "List the unique item codes of the report.")
	runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run -f <report.xlsx> [-l ORL|SFD] [--automate] [--manual] [--list-items]",
	Short: "Processes a single report.",
	Run: func(cmd *cobra.Command, args []string) {
		_, err := os.Stat(*runFile)
		if err != nil {
			serviceutil.Fatal("report cannot be found", err)
		}

		settings := loadSettings()
		loc := parseLocation(*runLocation)
		ctx := cmd.Context()
		defer setupTelemetry(ctx, settings)()

		store, closeLedger := openLedger(ctx, settings)
		defer closeLedger()
		automator := newAutomator(settings, loc, store)

		if *runListItems {
			items, err := automator.ListItems(*runFile)
			if err != nil {
				serviceutil.Fatal("failed to read report", err)
			}
			renderItems(items)
		}

		if *runManual {
			path, err := automator.WriteManual(*runFile)
			if err != nil {
				serviceutil.Fatal("failed to write manual sheet", err)
			}
			slog.Info("wrote manual sheet", "path", path)
		}

		if !*runAutomate {
			return
		}

		start := time.Now()
		round, err := automator.Automate(ctx, *runFile)
		if len(round.Summary.Results) > 0 {
			round.Summary.Render(os.Stdout)
		}
		slog.Info(
			"finished automation",
			"entered", round.Summary.Entered(),
			"remaining", round.Remaining,
			"failure_sheet", round.FailurePath,
			"minutes", fmt.Sprintf("%.1f", time.Since(start).Minutes()),
		)
		if err != nil && !errors.Is(err, ctx.Err()) {
			serviceutil.Fatal("automation stopped early", err)
		}
	},
}

func renderItems(items []report.ItemToken) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Item", "Category", "Suggestion", "Similarity"})
	for _, item := range items {
		if item.Known {
			t.AppendRow(table.Row{item.Token, item.Category.String(), "", ""})
			continue
		}
		t.AppendRow(table.Row{item.Token, "unknown", item.Suggestion, fmt.Sprintf("%.2f", item.Similarity)})
	}
	t.Render()
}
