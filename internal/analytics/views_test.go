package analytics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"donorboard/internal/core"

	"github.com/shopspring/decimal"
)

func amt(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	case string:
		return decimal.NewNullDecimal(decimal.RequireFromString(x))
	}
	panic(fmt.Sprintf("unsupported amount %T", v))
}

func donor(name string, d22, d23, d24, total any) core.DonorRecord {
	return core.DonorRecord{
		DonorName:      name,
		GiftFrequency:  "Annual",
		Donations2022:  amt(d22),
		Donations2023:  amt(d23),
		Donations2024:  amt(d24),
		TotalDonations: amt(total),
	}
}

func table(records ...core.DonorRecord) *core.Table {
	return &core.Table{ID: "t1", Header: core.RequiredColumns, Records: records}
}

// aliceBob is the three-row table with a duplicate Alice.
func aliceBob() *core.Table {
	return table(
		donor("Alice", 100, 200, 0, 300),
		donor("Bob", 50, 50, 50, 150),
		donor("Alice", 10, 10, 10, 30),
	)
}

func names(in []RankedDonor) []string {
	out := make([]string, len(in))
	for i, r := range in {
		out[i] = r.DonorName
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTopBottomByYearAliceBob(t *testing.T) {
	r, err := TopBottomByYear(aliceBob(), core.Year2022, 2)
	if err != nil {
		t.Fatalf("TopBottomByYear() error = %v", err)
	}
	if got := names(r.Top); !equal(got, []string{"Alice", "Bob"}) {
		t.Fatalf("top = %v", got)
	}
	if got := names(r.Bottom); !equal(got, []string{"Bob", "Alice"}) {
		t.Fatalf("bottom = %v", got)
	}
	if r.Top[0].Key.Decimal.IntPart() != 100 {
		t.Fatalf("first Alice row should be kept, key = %v", r.Top[0].Key)
	}
	if r.Column != core.ColDonations2022 {
		t.Fatalf("column = %q", r.Column)
	}
}

func TestTopBottomYearChangesOnlySortKey(t *testing.T) {
	tbl := table(
		donor("A", 10, 0, 0, 500),
		donor("B", 20, 0, 0, 100),
		donor("C", 30, 0, 0, 300),
	)
	by2022, _ := TopBottomByYear(tbl, core.Year2022, 10)
	all, _ := TopBottomByYear(tbl, core.AllYears, 10)

	if all.Column != core.ColTotalDonations {
		t.Fatalf("All Years column = %q", all.Column)
	}
	if got := names(by2022.Top); !equal(got, []string{"C", "B", "A"}) {
		t.Fatalf("2022 top = %v", got)
	}
	if got := names(all.Top); !equal(got, []string{"A", "C", "B"}) {
		t.Fatalf("All Years top = %v", got)
	}
	if len(all.Top) != len(by2022.Top) || len(all.Bottom) != len(by2022.Bottom) {
		t.Fatalf("slice sizes should not depend on the year")
	}
}

func TestTopBottomOrderingProperties(t *testing.T) {
	var recs []core.DonorRecord
	for i := 0; i < 30; i++ {
		v := (i * 37) % 11
		recs = append(recs, donor(fmt.Sprintf("D%02d", i%20), v, v+1, v+2, 3*v+3))
	}
	tbl := table(recs...)

	for _, year := range core.YearOptions {
		for _, n := range []int{5, 10, 20, 50} {
			r, err := TopBottomByYear(tbl, year, n)
			if err != nil {
				t.Fatalf("%s/%d: %v", year, n, err)
			}
			for i := 1; i < len(r.Top); i++ {
				if r.Top[i-1].Key.Decimal.LessThan(r.Top[i].Key.Decimal) {
					t.Fatalf("%s/%d: top not descending at %d", year, n, i)
				}
			}
			for i := 1; i < len(r.Bottom); i++ {
				if r.Bottom[i-1].Key.Decimal.GreaterThan(r.Bottom[i].Key.Decimal) {
					t.Fatalf("%s/%d: bottom not ascending at %d", year, n, i)
				}
			}
			if want := min(n, 20); len(r.Top) != want || len(r.Bottom) != want {
				t.Fatalf("%s/%d: sizes top=%d bottom=%d want %d", year, n, len(r.Top), len(r.Bottom), want)
			}
			if n >= 20 {
				top, bottom := map[string]bool{}, map[string]bool{}
				for _, d := range r.Top {
					top[d.DonorName] = true
				}
				for _, d := range r.Bottom {
					bottom[d.DonorName] = true
				}
				if len(top) != 20 || len(bottom) != 20 {
					t.Fatalf("%s/%d: expected every distinct donor once", year, n)
				}
				for name := range top {
					if !bottom[name] {
						t.Fatalf("%s/%d: %s missing from bottom", year, n, name)
					}
				}
			}
		}
	}
}

func TestTopBottomStableTies(t *testing.T) {
	tbl := table(
		donor("first", 5, 0, 0, 5),
		donor("second", 5, 0, 0, 5),
		donor("third", 9, 0, 0, 9),
	)
	r, _ := TopBottomByYear(tbl, core.Year2022, 5)
	if got := names(r.Top); !equal(got, []string{"third", "first", "second"}) {
		t.Fatalf("top = %v", got)
	}
	if got := names(r.Bottom); !equal(got, []string{"first", "second", "third"}) {
		t.Fatalf("bottom = %v", got)
	}
}

func TestMissingAmountsSortLast(t *testing.T) {
	tbl := table(
		donor("blank", nil, nil, nil, nil),
		donor("low", 1, 1, 1, 3),
		donor("high", 9, 9, 9, 27),
	)
	r, _ := TopBottomByYear(tbl, core.Year2023, 5)
	if got := names(r.Top); !equal(got, []string{"high", "low", "blank"}) {
		t.Fatalf("top = %v", got)
	}
	if got := names(r.Bottom); !equal(got, []string{"low", "high", "blank"}) {
		t.Fatalf("bottom = %v", got)
	}

	avg, _ := TopAverageDonors(tbl, 5)
	if got := names(avg); !equal(got, []string{"high", "low", "blank"}) {
		t.Fatalf("average = %v", got)
	}
	if avg[2].Key.Valid {
		t.Fatalf("donor with no yearly values should have no average")
	}
}

func TestTopBottomRejectsUnknownYear(t *testing.T) {
	_, err := TopBottomByYear(aliceBob(), core.YearOption("2021"), 5)
	if !errors.Is(err, core.ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestTopAverageDonors(t *testing.T) {
	avg, err := TopAverageDonors(aliceBob(), 10)
	if err != nil {
		t.Fatalf("TopAverageDonors() error = %v", err)
	}
	if got := names(avg); !equal(got, []string{"Alice", "Bob"}) {
		t.Fatalf("average = %v", got)
	}
	if avg[0].Key.Decimal.IntPart() != 100 {
		t.Fatalf("Alice mean = %v, want 100", avg[0].Key.Decimal)
	}

	var recs []core.DonorRecord
	for i := 0; i < 12; i++ {
		recs = append(recs, donor(fmt.Sprintf("D%d", i), i, i, i, 3*i))
		recs = append(recs, donor(fmt.Sprintf("D%d", i), 1000, 1000, 1000, 3000))
	}
	avg, _ = TopAverageDonors(table(recs...), 5)
	if len(avg) != 5 {
		t.Fatalf("len = %d, want 5", len(avg))
	}
	seen := map[string]bool{}
	for i, d := range avg {
		if seen[d.DonorName] {
			t.Fatalf("duplicate donor %s", d.DonorName)
		}
		seen[d.DonorName] = true
		if i > 0 && avg[i-1].Key.Decimal.LessThan(d.Key.Decimal) {
			t.Fatalf("not descending at %d", i)
		}
	}
	if avg[0].DonorName != "D11" {
		t.Fatalf("later duplicate rows must be ignored, got %s first", avg[0].DonorName)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	once := Dedupe(aliceBob().Records)
	twice := Dedupe(once)
	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("lengths once=%d twice=%d", len(once), len(twice))
	}
	for i := range once {
		if once[i].DonorName != twice[i].DonorName || !once[i].TotalDonations.Decimal.Equal(twice[i].TotalDonations.Decimal) {
			t.Fatalf("row %d differs after second dedupe", i)
		}
	}
	if once[0].TotalDonations.Decimal.IntPart() != 300 {
		t.Fatalf("first occurrence should win")
	}
}

func TestDistributionsCountEveryRow(t *testing.T) {
	recs := aliceBob().Records
	recs[1].GiftFrequency = "Monthly"
	recs[2].GiftFrequency = ""
	recs[0].EventAttendance = "Attended"
	recs[1].EventAttendance = "Attended"
	tbl := table(recs...)

	freq, err := GiftFrequency(tbl)
	if err != nil {
		t.Fatalf("GiftFrequency() error = %v", err)
	}
	att, _ := Attendance(tbl)
	for name, counts := range map[string][]Count{"frequency": freq, "attendance": att} {
		sum := 0
		for _, c := range counts {
			sum += c.Count
		}
		if sum != tbl.Len() {
			t.Fatalf("%s counts sum to %d, want %d", name, sum, tbl.Len())
		}
	}
	if att[0].Label != "Attended" || att[0].Count != 2 || att[1].Label != UnspecifiedLabel {
		t.Fatalf("attendance = %+v", att)
	}
}

func TestCountOrderTiesByFirstAppearance(t *testing.T) {
	recs := []core.DonorRecord{{GiftFrequency: "One-time"}, {GiftFrequency: "Monthly"}, {GiftFrequency: "Monthly"}, {GiftFrequency: "Annual"}}
	freq, _ := GiftFrequency(table(recs...))
	want := []Count{{"Monthly", 2}, {"One-time", 1}, {"Annual", 1}}
	for i := range want {
		if freq[i] != want[i] {
			t.Fatalf("freq = %+v, want %+v", freq, want)
		}
	}
}

func TestYearlyTotalsNoDedupe(t *testing.T) {
	totals, err := YearlyTotals(aliceBob())
	if err != nil {
		t.Fatalf("YearlyTotals() error = %v", err)
	}
	want := map[string]int64{
		core.ColDonations2022:  160,
		core.ColDonations2023:  260,
		core.ColDonations2024:  60,
		core.ColTotalDonations: 480,
	}
	for i, col := range core.AmountColumns {
		if totals[i].Column != col || totals[i].Amount.Decimal.IntPart() != want[col] {
			t.Fatalf("%s = %v, want %d", col, totals[i].Amount.Decimal, want[col])
		}
	}
}

func TestAverageDonations(t *testing.T) {
	tbl := table(
		donor("a", "10.004", 1, nil, 11),
		donor("b", "10.010", 2, nil, 12),
		donor("c", "10.010", 2, nil, 12),
	)
	avg, err := AverageDonations(tbl)
	if err != nil {
		t.Fatalf("AverageDonations() error = %v", err)
	}
	if got := avg[0].Amount.Decimal.String(); got != "10.01" {
		t.Fatalf("2022 mean = %s, want 10.01", got)
	}
	if got := avg[1].Amount.Decimal.String(); got != "1.67" {
		t.Fatalf("2023 mean = %s, want 1.67", got)
	}
	if avg[2].Amount.Valid {
		t.Fatalf("2024 has no values and should be null")
	}
	if avg[3].Column != core.ColTotalDonations {
		t.Fatalf("last row = %s", avg[3].Column)
	}
}

func TestLastGiftTimeline(t *testing.T) {
	day := func(d int) core.Date { return core.Date{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)} }
	var recs []core.DonorRecord
	for _, d := range []int{0, 1, 14, 15, 29, 30} {
		recs = append(recs, core.DonorRecord{LastGiftDate: day(d)})
	}
	recs = append(recs, core.DonorRecord{})

	h, err := LastGiftTimeline(table(recs...), TimelineBins)
	if err != nil {
		t.Fatalf("LastGiftTimeline() error = %v", err)
	}
	if len(h.Bins) != TimelineBins {
		t.Fatalf("bins = %d", len(h.Bins))
	}
	if h.Dropped != 1 || h.Total() != 6 {
		t.Fatalf("dropped=%d total=%d", h.Dropped, h.Total())
	}
	// 30 days over 15 bins: two days per bin.
	if h.Bins[0].Count != 2 || h.Bins[7].Count != 2 || h.Bins[14].Count != 2 {
		t.Fatalf("unexpected counts %+v", h.Bins)
	}
	if !h.Bins[14].End.Equal(day(30).Time) {
		t.Fatalf("last bin should close at the max date, got %v", h.Bins[14].End)
	}

	single, _ := LastGiftTimeline(table(core.DonorRecord{LastGiftDate: day(3)}), TimelineBins)
	if single.Total() != 1 || single.Bins[0].Count != 1 {
		t.Fatalf("single date histogram = %+v", single.Bins)
	}

	none, err := LastGiftTimeline(table(core.DonorRecord{}), TimelineBins)
	if err != nil || len(none.Bins) != 0 || none.Dropped != 1 {
		t.Fatalf("undated table = %+v, %v", none, err)
	}
}

func TestEmptyTableIsInputAbsent(t *testing.T) {
	empty := table()
	checks := map[string]error{}
	_, checks["frequency"] = GiftFrequency(empty)
	_, checks["attendance"] = Attendance(empty)
	_, checks["timeline"] = LastGiftTimeline(empty, TimelineBins)
	_, checks["totals"] = YearlyTotals(empty)
	_, checks["averages"] = AverageDonations(empty)
	_, checks["top average"] = TopAverageDonors(empty, 10)
	_, checks["ranking"] = TopBottomByYear(empty, core.AllYears, 10)
	_, checks["nil table"] = GiftFrequency(nil)
	for name, err := range checks {
		if core.KindOf(err) != core.KindInputAbsent {
			t.Errorf("%s: kind = %q, want input_absent", name, core.KindOf(err))
		}
	}
}

func TestClampSliceSize(t *testing.T) {
	cases := map[int]int{0: 10, 1: 5, 5: 5, 17: 17, 50: 50, 51: 50, -3: 5}
	for in, want := range cases {
		if got := ClampSliceSize(in); got != want {
			t.Errorf("ClampSliceSize(%d) = %d, want %d", in, got, want)
		}
	}
}
