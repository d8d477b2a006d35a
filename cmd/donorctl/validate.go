package main

import (
	"donorboard/internal/dashboard"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a donor file can be loaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "OK: %s donor records (%s)\n",
				dashboard.Count(tbl.Len()), tbl.Format)
			return nil
		},
	}
}
