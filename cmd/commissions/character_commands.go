package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"commissions/internal/catalog"
)

func newCharacterCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "character",
		Aliases: []string{"characters"},
		Short:   "Manage characters and their display order",
	}
	cmd.AddCommand(newCharacterListCommand(ctx))
	cmd.AddCommand(newCharacterAddCommand(ctx))
	cmd.AddCommand(newCharacterRenameCommand(ctx))
	cmd.AddCommand(newCharacterDeleteCommand(ctx))
	cmd.AddCommand(newCharacterReorderCommand(ctx))
	return cmd
}

func newCharacterListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List characters in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			characters, err := store.ListCharacters(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, characters)
			}
			out := cmd.OutOrStdout()
			if len(characters) == 0 {
				fmt.Fprintln(out, "No characters")
				return nil
			}
			rows := make([][]string, 0, len(characters))
			for _, c := range characters {
				status := string(c.Status)
				if c.Status == catalog.StatusStale {
					status = paint(out, status, text.FgYellow)
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					strconv.Itoa(c.SortOrder),
					c.Name,
					status,
					strconv.Itoa(c.CommissionCount),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Order", "Name", "Status", "Commissions"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newCharacterAddCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a character at the end of the order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.CreateCharacter(cmd.Context(), args[0], status))
		},
	}
	cmd.Flags().StringVar(&status, "status", string(catalog.StatusActive), "Character status (active or stale)")
	return cmd
}

func newCharacterRenameCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a character and set its status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "character")
			if err != nil {
				return err
			}
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.UpdateCharacter(cmd.Context(), id, args[1], status))
		},
	}
	cmd.Flags().StringVar(&status, "status", string(catalog.StatusActive), "Character status (active or stale)")
	return cmd
}

func newCharacterDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a character and every commission it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "character")
			if err != nil {
				return err
			}
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.DeleteCharacter(cmd.Context(), id))
		},
	}
}

func newCharacterReorderCommand(ctx *commandContext) *cobra.Command {
	var active, stale []int64
	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Rewrite the display order",
		Long: `Assigns sort positions 1..N to the listed characters: active ids first,
then stale ids. Characters left out keep their current position.`,
		Example: "  commissions character reorder --active 3,1,2 --stale 4",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.ReorderCharacters(cmd.Context(), active, stale))
		},
	}
	cmd.Flags().Int64SliceVar(&active, "active", nil, "Active character ids in display order")
	cmd.Flags().Int64SliceVar(&stale, "stale", nil, "Stale character ids in display order")
	return cmd
}

func parseID(raw, kind string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
