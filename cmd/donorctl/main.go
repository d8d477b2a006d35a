// Command donorctl prints dashboard reports for a donor file without
// running the web server.
package main

import (
	"context"
	"fmt"
	"os"

	"donorboard/internal/cli"
	"donorboard/internal/core"
	"donorboard/internal/loader"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	cli.LoadEnvFile()
	cli.SetupLogger(envOr("LOG_LEVEL", "warn"))
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool
	root := &cobra.Command{
		Use:           "donorctl",
		Short:         "Inspect donor files from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.AddCommand(newReportCmd(), newValidateCmd(), newChartCmd(), newEventsCmd())
	return root
}

// loadFile reads a donor file the same way an upload is read.
func loadFile(ctx context.Context, path string) (*core.Table, error) {
	tbl, err := loader.FileSource{Path: path}.Load(ctx)
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func heading(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgYellow, color.Bold).Fprintf(cmd.OutOrStdout(), "\n"+format+"\n", args...)
}

func warnf(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), fmt.Sprintf(format, args...))
}
