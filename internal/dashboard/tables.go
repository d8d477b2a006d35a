package dashboard

import (
	"fmt"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
)

const ColAverageDonation = "Average Donation"

// Table is a rendered data table with a fixed column set.
type Table struct {
	Heading string
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

var (
	averageDonorColumns = []string{
		core.ColDonorName, ColAverageDonation,
		core.ColDonations2022, core.ColDonations2023, core.ColDonations2024,
		core.ColLastGiftDate, core.ColGiftFrequency, core.ColEventAttendance,
		core.ColRelationshipNotes, core.ColTotalDonations,
	}
	sliceTailColumns = []string{
		core.ColLastGiftDate, core.ColGiftFrequency, core.ColEventAttendance,
		core.ColRelationshipNotes, core.ColTotalDonations,
	}
)

// AveragesTable lists each amount column's mean.
func AveragesTable(avgs []analytics.ColumnAmount) Table {
	t := Table{
		Heading: "Average Donations (2022–2024)",
		Columns: []string{"Year", "Average Donation ($)"},
	}
	for _, a := range avgs {
		t.Rows = append(t.Rows, []string{a.Column, Amount(a.Amount)})
	}
	return t
}

// TopAverageTable lists donors by mean yearly donation.
func TopAverageTable(ranked []analytics.RankedDonor) Table {
	t := Table{
		Heading: "Top Donors by Average Annual Donation (2022–2024)",
		Columns: averageDonorColumns,
	}
	for _, r := range ranked {
		row := []string{r.DonorName, Amount(r.Key)}
		for _, col := range core.YearlyColumns {
			row = append(row, cell(r.DonorRecord, col))
		}
		for _, col := range sliceTailColumns {
			row = append(row, cell(r.DonorRecord, col))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RankingColumns is the column set of the top/bottom tables. A single year
// shows that year's column; All Years shows every source column.
func RankingColumns(year core.YearOption) []string {
	if year == core.AllYears {
		return core.RequiredColumns
	}
	return append([]string{core.ColDonorName, year.Column()}, sliceTailColumns...)
}

// RankingTables renders the top and bottom slices of r, which were cut at n.
func RankingTables(r analytics.Ranking, n int) (top, bottom Table) {
	cols := RankingColumns(r.Year)
	top = Table{Heading: fmt.Sprintf("Top %d Donors – %s", n, r.Year), Columns: cols}
	bottom = Table{Heading: fmt.Sprintf("Bottom %d Donors – %s", n, r.Year), Columns: cols}
	for _, d := range r.Top {
		top.Rows = append(top.Rows, row(d.DonorRecord, cols))
	}
	for _, d := range r.Bottom {
		bottom.Rows = append(bottom.Rows, row(d.DonorRecord, cols))
	}
	return top, bottom
}

func row(r core.DonorRecord, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = cell(r, c)
	}
	return out
}

func cell(r core.DonorRecord, col string) string {
	switch col {
	case core.ColDonorName:
		return r.DonorName
	case core.ColGiftFrequency:
		return r.GiftFrequency
	case core.ColLastGiftDate:
		return Date(r.LastGiftDate)
	case core.ColEventAttendance:
		return r.EventAttendance
	case core.ColRelationshipNotes:
		return r.RelationshipNotes
	}
	if v, err := r.Amount(col); err == nil {
		return Amount(v)
	}
	return ""
}
