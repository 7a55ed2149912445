package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"commissions/internal/imageindex"
	"commissions/internal/pipelinejob"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect the image pipeline",
	}
	cmd.AddCommand(newPipelineStatusCommand(ctx))
	cmd.AddCommand(newPipelineIndexCommand(ctx))
	return cmd
}

func newPipelineStatusCommand(ctx *commandContext) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline status reported by a running API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(address)
			if target == "" {
				target = cfg.API.Bind
			}
			status, err := fetchPipelineStatus(cmd.Context(), target)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			printPipelineStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "addr", "", "API address (defaults to the configured bind)")
	return cmd
}

func fetchPipelineStatus(ctx context.Context, address string) (pipelinejob.Status, error) {
	var status pipelinejob.Status
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+address+"/api/pipeline", nil)
	if err != nil {
		return status, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status, fmt.Errorf("connect to api at %s: %w; start it with `commissions serve`", address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, fmt.Errorf("api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode pipeline status: %w", err)
	}
	return status, nil
}

func printPipelineStatus(out io.Writer, status pipelinejob.Status) {
	state := "idle"
	if status.Running {
		state = paint(out, "running "+status.CurrentRun, text.FgCyan)
	}
	fmt.Fprintf(out, "State: %s\n", state)
	fmt.Fprintf(out, "Runs:  %d\n", status.Runs)
	if status.LastRunAt == nil {
		fmt.Fprintln(out, "No pipeline runs yet")
		return
	}
	fmt.Fprintf(out, "Last run: %s at %s\n", status.LastRunID, status.LastRunAt.Local().Format(time.DateTime))
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", paint(out, status.LastError, text.FgRed))
	}
	if status.LastReport != nil {
		printReport(out, *status.LastReport)
	}
}

func newPipelineIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Show the derivative index written by the last pipeline run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.WebPDir(), cfg.Pipeline.IndexFileName)
			idx, err := imageindex.Read(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no derivative index at %s; run `commissions convert` first", path)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, idx)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %s by run %s\n", idx.GeneratedAt.Local().Format(time.DateTime), idx.RunID)
			rows := make([][]string, 0, len(idx.Entries))
			for _, e := range idx.Entries {
				rows = append(rows, []string{e.Name, e.File, strconv.FormatInt(e.Size, 10), e.Modified.Local().Format(time.DateTime)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "File", "Bytes", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
