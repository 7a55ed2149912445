package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"commissions/internal/imaging"
	"commissions/internal/pipelinejob"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert",
		Short: "Promote PNG uploads and regenerate WebP derivatives",
		Long: `Runs one pipeline pass over the images directory.

Per-file failures are reported but do not change the exit status; only a
missing or unreadable images directory does.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			report, err := pipelinejob.New(cfg, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printReport(out io.Writer, report imaging.BatchReport) {
	rows := [][]string{
		{"Processed", strconv.Itoa(report.Processed)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Failed", strconv.Itoa(len(report.Failed))},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Run %s finished in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
	for _, name := range report.Failed {
		fmt.Fprintf(out, "  %s %s\n", paint(out, "failed", text.FgRed), name)
	}
}
