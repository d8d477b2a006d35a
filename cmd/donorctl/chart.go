package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"donorboard/internal/analytics"
	"donorboard/internal/charts"
	"donorboard/internal/dashboard"

	"github.com/spf13/cobra"
)

func newChartCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "chart FILE NAME",
		Short: "Render one dashboard chart as SVG",
		Long: fmt.Sprintf(`Render one dashboard chart as SVG.

Charts: %s`, strings.Join(dashboard.ChartNames, ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			spec, err := dashboard.BuildChart(cmd.Context(), analytics.NewEngine(16), tbl, args[1])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := charts.Render(&buf, spec); err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
