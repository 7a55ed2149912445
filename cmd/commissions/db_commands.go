package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"commissions/internal/catalog"
	"commissions/internal/preflight"
)

type checkReport struct {
	Preflight []preflight.Result `json:"preflight"`
	Health    *catalog.Health    `json:"health,omitempty"`
	OK        bool               `json:"ok"`
}

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog database utilities",
	}
	cmd.AddCommand(newDBCheckCommand(ctx))
	return cmd
}

func newDBCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run filesystem checks and verify catalog ordering invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := checkReport{Preflight: preflight.RunAll(cfg)}
			report.OK = preflight.FirstFailure(report.Preflight) == nil

			if report.OK {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				report.Health = &health
				report.OK = health.Consistent()
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printCheckReport(cmd, report)
			}
			if !report.OK {
				return errors.New("catalog check failed")
			}
			return nil
		},
	}
}

func printCheckReport(cmd *cobra.Command, report checkReport) {
	out := cmd.OutOrStdout()
	pass := paint(out, "ok", text.FgGreen)
	fail := paint(out, "FAIL", text.FgRed)

	rows := make([][]string, 0, len(report.Preflight)+6)
	for _, r := range report.Preflight {
		state := pass
		if !r.Passed {
			state = fail
		}
		rows = append(rows, []string{r.Name, state, r.Detail})
	}
	if h := report.Health; h != nil {
		rows = append(rows,
			[]string{"Schema version", pass, strconv.Itoa(h.SchemaVersion)},
			[]string{"Integrity", checkState(h.IntegrityCheck == "ok", pass, fail), h.IntegrityCheck},
			[]string{"Dense order", checkState(h.DenseOrder, pass, fail), fmt.Sprintf("%d characters, %d duplicate positions", h.Characters, h.DuplicateSortOrder)},
			[]string{"Active before stale", checkState(h.PartitionOrdered, pass, fail), ""},
			[]string{"Orphan commissions", checkState(h.OrphanCommissions == 0, pass, fail), fmt.Sprintf("%d of %d", h.OrphanCommissions, h.Commissions)},
		)
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
}

func checkState(ok bool, pass, fail string) string {
	if ok {
		return pass
	}
	return fail
}
