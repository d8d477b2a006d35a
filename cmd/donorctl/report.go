package main

import (
	"io"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
	"donorboard/internal/dashboard"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	year   string
	top    int
	avgTop int
}

func newReportCmd() *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Print every dashboard table for a donor file",
		Long: `Print the dashboard's views as text tables: gift frequency, event
attendance, yearly totals, average donations, top average donors and the
top and bottom donors for a year.

Examples:
  donorctl report donors.xlsx
  donorctl report donors.csv --year "All Years" --top 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.year, "year", string(core.Year2022), `Year for the top/bottom tables (2022, 2023, 2024 or "All Years")`)
	cmd.Flags().IntVar(&opts.top, "top", analytics.DefaultSliceSize, "Number of top and bottom donors")
	cmd.Flags().IntVar(&opts.avgTop, "avg-top", analytics.DefaultSliceSize, "Number of top average donors")
	return cmd
}

func runReport(cmd *cobra.Command, path string, opts reportOptions) error {
	year, err := core.ParseYearOption(opts.year)
	if err != nil {
		return err
	}
	top := analytics.ClampSliceSize(opts.top)
	avgTop := analytics.ClampSliceSize(opts.avgTop)

	tbl, err := loadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	heading(cmd, "%s donor records loaded from %s", dashboard.Count(tbl.Len()), tbl.Source)

	if counts, err := analytics.GiftFrequency(tbl); err != nil {
		warnf(cmd, "Gift frequency: %v", err)
	} else {
		heading(cmd, "Gift Frequency Distribution")
		writeCounts(out, "Gift Frequency", counts)
	}

	if counts, err := analytics.Attendance(tbl); err != nil {
		warnf(cmd, "Event attendance: %v", err)
	} else {
		heading(cmd, "Event Attendance Representation")
		writeCounts(out, "Event Attendance", counts)
	}

	if totals, err := analytics.YearlyTotals(tbl); err != nil {
		warnf(cmd, "Yearly totals: %v", err)
	} else {
		heading(cmd, "Total Donations by Year")
		t := tablewriter.NewWriter(out)
		t.SetHeader([]string{"Year", "Total Donations ($)"})
		for _, c := range totals {
			t.Append([]string{c.Column, dashboard.Amount(c.Amount)})
		}
		t.Render()
	}

	if avgs, err := analytics.AverageDonations(tbl); err != nil {
		warnf(cmd, "Average donations: %v", err)
	} else {
		writeTable(cmd, dashboard.AveragesTable(avgs))
	}

	if ranked, err := analytics.TopAverageDonors(tbl, avgTop); err != nil {
		warnf(cmd, "Top average donors: %v", err)
	} else {
		writeTable(cmd, dashboard.TopAverageTable(ranked))
	}

	r, err := analytics.TopBottomByYear(tbl, year, top)
	if err != nil {
		warnf(cmd, "Top and bottom donors: %v", err)
		return nil
	}
	topTable, bottomTable := dashboard.RankingTables(r, top)
	writeTable(cmd, topTable)
	writeTable(cmd, bottomTable)
	return nil
}

func writeCounts(w io.Writer, label string, counts []analytics.Count) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{label, "Donors"})
	for _, c := range counts {
		t.Append([]string{c.Label, dashboard.Count(c.Count)})
	}
	t.Render()
}

func writeTable(cmd *cobra.Command, tbl dashboard.Table) {
	heading(cmd, "%s", tbl.Heading)
	t := tablewriter.NewWriter(cmd.OutOrStdout())
	t.SetHeader(tbl.Columns)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(tbl.Rows)
	t.Render()
}
