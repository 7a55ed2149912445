package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"commissions/internal/catalog"
)

func newCommissionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commission",
		Aliases: []string{"commissions"},
		Short:   "Manage commissions",
	}
	cmd.AddCommand(newCommissionListCommand(ctx))
	cmd.AddCommand(newCommissionAddCommand(ctx))
	cmd.AddCommand(newCommissionUpdateCommand(ctx))
	cmd.AddCommand(newCommissionDeleteCommand(ctx))
	return cmd
}

func bindCommissionFlags(cmd *cobra.Command, in *catalog.CommissionInput) {
	flags := cmd.Flags()
	flags.Int64Var(&in.CharacterID, "character", 0, "Owning character id")
	flags.StringVar(&in.FileName, "file", "", "Image file name")
	flags.StringArrayVar(&in.Links, "link", nil, "Link for the commission (repeatable)")
	flags.StringVar(&in.Design, "design", "", "Design credit")
	flags.StringVar(&in.Description, "description", "", "Description")
	flags.BoolVar(&in.Hidden, "hidden", false, "Hide from the public gallery")
}

func newCommissionListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List commissions grouped in character order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			snap, err := store.AdminSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snap.Commissions)
			}
			out := cmd.OutOrStdout()
			if len(snap.Commissions) == 0 {
				fmt.Fprintln(out, "No commissions")
				return nil
			}
			rows := make([][]string, 0, len(snap.Commissions))
			for _, c := range snap.Commissions {
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					c.CharacterName,
					c.FileName,
					strconv.Itoa(len(c.Links)),
					yesNo(c.Hidden),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Character", "File", "Links", "Hidden"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newCommissionAddCommand(ctx *commandContext) *cobra.Command {
	var in catalog.CommissionInput
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a commission to a character",
		Example: `  commissions commission add --character 3 --file 2024-05_aria.jpg --link https://example.com/post`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.CreateCommission(cmd.Context(), in))
		},
	}
	bindCommissionFlags(cmd, &in)
	return cmd
}

func newCommissionUpdateCommand(ctx *commandContext) *cobra.Command {
	var in catalog.CommissionInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every field of a commission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "commission")
			if err != nil {
				return err
			}
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.UpdateCommission(cmd.Context(), id, in))
		},
	}
	bindCommissionFlags(cmd, &in)
	return cmd
}

func newCommissionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a commission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(strings.TrimSpace(args[0]), "commission")
			if err != nil {
				return err
			}
			svc, err := ctx.adminService()
			if err != nil {
				return err
			}
			return ctx.reportResult(cmd, svc.DeleteCommission(cmd.Context(), id))
		},
	}
}
