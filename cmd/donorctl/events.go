package main

import (
	"time"

	"donorboard/internal/dashboard"
	"donorboard/internal/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List dataset loads recorded by the event worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := storage.NewEventLog(dbPath)
			if err != nil {
				return err
			}
			defer events.Close()

			recent, err := events.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			heading(cmd, "Recent dataset loads (%d)", len(recent))
			t := tablewriter.NewWriter(cmd.OutOrStdout())
			t.SetHeader([]string{"Loaded At", "Source", "Format", "Rows", "Session"})
			for _, e := range recent {
				t.Append([]string{
					e.LoadedAt.Format(time.DateTime),
					e.Source,
					e.Format,
					dashboard.Count(e.Rows),
					e.SessionID,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", envOr("EVENTS_DB_PATH", "data/events.db"), "Event log database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events")
	return cmd
}
