package http

import (
	"errors"
	"net/url"
	"testing"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
)

func TestParseSliceSize(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		current int
		want    int
	}{
		{"missing keeps current", "", 25, 25},
		{"malformed keeps current", "lots", 25, 25},
		{"in range", "12", 10, 12},
		{"below range", "2", 10, analytics.MinSliceSize},
		{"explicit zero", "0", 10, analytics.MinSliceSize},
		{"negative", "-7", 10, analytics.MinSliceSize},
		{"above range", "500", 10, analytics.MaxSliceSize},
		{"whitespace", " 30 ", 10, 30},
		{"unset current", "", 0, analytics.DefaultSliceSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			if tt.value != "" {
				q.Set(paramTopN, tt.value)
			}
			if got := ParseSliceSize(q, paramTopN, tt.current); got != tt.want {
				t.Fatalf("ParseSliceSize(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	got, err := ParseYear(url.Values{}, core.Year2024)
	if err != nil || got != core.Year2024 {
		t.Fatalf("missing year = %q, %v", got, err)
	}
	got, err = ParseYear(url.Values{paramYear: {"All Years"}}, core.Year2022)
	if err != nil || got != core.AllYears {
		t.Fatalf("All Years = %q, %v", got, err)
	}
	if _, err := ParseYear(url.Values{paramYear: {"2019"}}, core.Year2022); !errors.Is(err, core.ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestParseParams(t *testing.T) {
	current := analytics.DefaultParams()
	p, err := ParseParams(url.Values{paramYear: {"2023"}, paramTopN: {"60"}}, current)
	if err != nil {
		t.Fatalf("ParseParams() error = %v", err)
	}
	want := analytics.Params{Year: core.Year2023, AvgTopN: 10, TopN: analytics.MaxSliceSize}
	if p != want {
		t.Fatalf("ParseParams() = %+v, want %+v", p, want)
	}
}
