package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"donorboard/internal/analytics"
	"donorboard/internal/content"
	"donorboard/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleTable() *core.Table {
	return &core.Table{
		ID:     "t1",
		Source: "donors.csv",
		Records: []core.DonorRecord{
			{DonorName: "Alice", GiftFrequency: "Annual", EventAttendance: "Attended", LastGiftDate: core.NewDate(2024, 1, 15),
				Donations2022: dec("100"), Donations2023: dec("200"), Donations2024: dec("0"), TotalDonations: dec("300")},
			{DonorName: "Bob", GiftFrequency: "Monthly", EventAttendance: "Did not attend", LastGiftDate: core.NewDate(2023, 3, 2),
				Donations2022: dec("50"), Donations2023: dec("50"), Donations2024: dec("50"), TotalDonations: dec("150")},
			{DonorName: "Alice", GiftFrequency: "Annual", EventAttendance: "Attended",
				Donations2022: dec("10"), Donations2023: dec("10"), Donations2024: dec("10"), TotalDonations: dec("30")},
		},
	}
}

func TestAmountFormatting(t *testing.T) {
	cases := map[string]string{
		"1234567.891": "1,234,567.89",
		"0":           "0.00",
		"50.5":        "50.50",
	}
	for in, want := range cases {
		if got := Amount(dec(in)); got != want {
			t.Errorf("Amount(%s) = %q, want %q", in, got, want)
		}
	}
	if Amount(decimal.NullDecimal{}) != MissingValue {
		t.Errorf("missing amount should render as %q", MissingValue)
	}
	if Count(12345) != "12,345" {
		t.Errorf("Count() = %q", Count(12345))
	}
	if Date(core.Date{}) != MissingValue || Date(core.NewDate(2024, 2, 9)) != "2024-02-09" {
		t.Errorf("unexpected date formatting")
	}
}

func TestRankingTablesColumns(t *testing.T) {
	tbl := sampleTable()
	r, err := analytics.TopBottomByYear(tbl, core.Year2022, 2)
	if err != nil {
		t.Fatalf("TopBottomByYear() error = %v", err)
	}
	top, bottom := RankingTables(r, 2)
	wantCols := []string{"Donor Name", "Donations 2022", "Last Gift Date", "Gift Frequency", "Event Attendance", "Relationship Notes", "TotalDonations"}
	if strings.Join(top.Columns, "|") != strings.Join(wantCols, "|") {
		t.Fatalf("columns = %v", top.Columns)
	}
	if top.Heading != "Top 2 Donors – 2022" || bottom.Heading != "Bottom 2 Donors – 2022" {
		t.Fatalf("headings = %q / %q", top.Heading, bottom.Heading)
	}
	if top.Rows[0][0] != "Alice" || top.Rows[0][1] != "100.00" || bottom.Rows[0][0] != "Bob" {
		t.Fatalf("rows top=%v bottom=%v", top.Rows, bottom.Rows)
	}

	all, _ := analytics.TopBottomByYear(tbl, core.AllYears, 10)
	top, _ = RankingTables(all, 10)
	if len(top.Columns) != len(core.RequiredColumns) {
		t.Fatalf("All Years should show every column, got %v", top.Columns)
	}
	if top.Heading != "Top 10 Donors – All Years" {
		t.Fatalf("heading = %q", top.Heading)
	}
}

func TestTopAverageAndAveragesTables(t *testing.T) {
	tbl := sampleTable()
	ranked, _ := analytics.TopAverageDonors(tbl, 10)
	ta := TopAverageTable(ranked)
	if len(ta.Columns) != 10 || ta.Columns[1] != ColAverageDonation {
		t.Fatalf("columns = %v", ta.Columns)
	}
	if ta.Rows[0][0] != "Alice" || ta.Rows[0][1] != "100.00" || ta.Rows[0][5] != "2024-01-15" {
		t.Fatalf("row = %v", ta.Rows[0])
	}

	avgs, _ := analytics.AverageDonations(tbl)
	at := AveragesTable(avgs)
	if at.Columns[0] != "Year" || at.Columns[1] != "Average Donation ($)" || len(at.Rows) != 4 {
		t.Fatalf("averages = %+v", at)
	}
	if at.Rows[0][0] != "Donations 2022" || at.Rows[0][1] != "53.33" {
		t.Fatalf("first average row = %v", at.Rows[0])
	}
}

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
		text  string
	}{
		{"empty table", core.ErrEmptyTable, LevelInfo, MsgPrompt},
		{"unsupported", core.NewError(core.KindUnsupportedFormat, "Unsupported file type.", nil), LevelWarning, "Unsupported file type."},
		{"read failure", core.NewError(core.KindReadFailure, "Failed to read the uploaded file", errors.New("bad zip")), LevelError, "Failed to read the uploaded file: bad zip"},
		{"missing file", core.NewError(core.KindMissingFile, "Data file not found: data/x.xlsx", nil), LevelError, "data/x.xlsx"},
		{"unexpected", errors.New("boom"), LevelError, "An unexpected error occurred: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NoticeFor(tt.err)
			if n.Level != tt.level || !strings.Contains(n.Message, tt.text) {
				t.Fatalf("NoticeFor() = %+v", n)
			}
		})
	}
}

func TestCharts(t *testing.T) {
	e := analytics.NewEngine(50)
	tbl := sampleTable()
	ctx := context.Background()

	pie, err := BuildChart(ctx, e, tbl, ChartGiftFrequency)
	if err != nil {
		t.Fatalf("BuildChart() error = %v", err)
	}
	if pie.Type != "pie" || pie.Title != "Distribution of Yearly Gift Frequencies" || pie.Labels[0] != "Annual" || pie.Values[0] != 2 {
		t.Fatalf("pie = %+v", pie)
	}

	donut, _ := BuildChart(ctx, e, tbl, ChartAttendance)
	if donut.Type != "doughnut" || donut.HoleFraction != 0.6 {
		t.Fatalf("donut = %+v", donut)
	}

	bars, _ := BuildChart(ctx, e, tbl, ChartYearlyTotals)
	if len(bars.Labels) != 4 || bars.Labels[3] != core.ColTotalDonations || bars.ValueLabels[3] != "480.00" || bars.XTitle != "Year" {
		t.Fatalf("bars = %+v", bars)
	}

	hist, _ := BuildChart(ctx, e, tbl, ChartTimeline)
	if len(hist.Values) != analytics.TimelineBins || !hist.Gridlines || hist.XTitle != "Date of Last Gift" {
		t.Fatalf("histogram = %+v", hist)
	}
	total := 0.0
	for _, v := range hist.Values {
		total += v
	}
	if total != 2 {
		t.Fatalf("dated rows = %v, want 2", total)
	}

	if _, err := BuildChart(ctx, e, tbl, "radar"); !errors.Is(err, ErrUnknownChart) {
		t.Fatalf("expected ErrUnknownChart, got %v", err)
	}
}

func TestNewPage(t *testing.T) {
	c, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}

	empty := NewPage(c, nil, analytics.Dashboard{}, analytics.DefaultParams())
	if empty.HasData || empty.Notice == nil || empty.Notice.Message != MsgPrompt {
		t.Fatalf("empty page = %+v", empty)
	}
	if len(empty.Sections) != 6 || len(empty.Recommendations) != 8 {
		t.Fatalf("sections=%d recommendations=%d", len(empty.Sections), len(empty.Recommendations))
	}

	tbl := sampleTable()
	p := analytics.Params{Year: core.Year2023, AvgTopN: 5, TopN: 99}
	d := analytics.NewEngine(50).Compute(context.Background(), tbl, p)
	d.YearlyTotals = analytics.Result[[]analytics.ColumnAmount]{Err: errors.New("boom")}

	page := NewPage(c, tbl, d, p)
	if !page.HasData || page.Rows != 3 {
		t.Fatalf("page = %+v", page)
	}
	if _, failed := page.ChartErrors[ChartYearlyTotals]; !failed || len(page.ChartErrors) != 1 {
		t.Fatalf("chart errors = %+v", page.ChartErrors)
	}
	if page.Controls.TopN != analytics.MaxSliceSize || page.Controls.Year != "2023" {
		t.Fatalf("controls = %+v", page.Controls)
	}
	if page.Cultivation.Top.Heading != "Top 50 Donors – 2023" || page.Cultivation.Top.Notice != nil {
		t.Fatalf("top table = %+v", page.Cultivation.Top)
	}
	selected := 0
	for _, y := range page.Controls.Years {
		if y.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Fatalf("exactly one year should be selected")
	}
}

func TestSectionByID(t *testing.T) {
	s, ok := SectionByID(SectionCultivation)
	if !ok || s.Tab != "Donor Cultivation Analysis" {
		t.Fatalf("SectionByID() = %+v, %v", s, ok)
	}
	if _, ok := SectionByID("nope"); ok {
		t.Fatal("unknown section should not resolve")
	}
}

func TestSectionViews(t *testing.T) {
	page := Page{
		Sections:    Sections,
		Active:      SectionDonations,
		ChartErrors: map[string]Notice{ChartYearlyTotals: {Level: LevelError, Message: "boom"}},
	}
	views := page.SectionViews()
	if len(views) != len(Sections) {
		t.Fatalf("views = %d", len(views))
	}
	for _, v := range views {
		if v.Active != (v.ID == SectionDonations) {
			t.Fatalf("section %s active = %v", v.ID, v.Active)
		}
		switch v.ID {
		case SectionDonations:
			if n := v.ChartError(); n == nil || n.Message != "boom" {
				t.Fatalf("donations chart error = %+v", n)
			}
		default:
			if v.ChartError() != nil {
				t.Fatalf("section %s should have no chart error", v.ID)
			}
		}
	}
	if _, ok := page.SectionView("nope"); ok {
		t.Fatal("unknown section resolved")
	}
}
