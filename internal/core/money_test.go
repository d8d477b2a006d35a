package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		out   string
		valid bool
		ok    bool
	}{
		{"100", "100", true, true},
		{"1.23", "1.23", true, true},
		{" 2.50 ", "2.5", true, true},
		{"$1,234.50", "1234.5", true, true},
		{"0", "0", true, true},
		{"", "", false, true},
		{"NaN", "", false, true},
		{"-", "", false, true},
		{"abc", "", false, false},
		{"1.2.3", "", false, false},
		{"-500", "", false, false},
		{"$-1,000", "", false, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error %v", tc.in, err)
		}
		if got.Valid != tc.valid {
			t.Fatalf("%q valid = %v, want %v", tc.in, got.Valid, tc.valid)
		}
		if tc.valid && got.Decimal.String() != tc.out {
			t.Fatalf("%q = %s, want %s", tc.in, got.Decimal.String(), tc.out)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-07", "2024-03-07 13:45:00", "3/7/2024", "03/07/2024", "3/7/24", "Mar 7, 2024"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !d.Equal(want) {
			t.Fatalf("%q = %v, want %v", in, d.Time, want)
		}
	}

	d, err := ParseDate("  ")
	if err != nil || !d.IsEmpty() {
		t.Fatalf("blank date should be empty, got %v err=%v", d, err)
	}

	if _, err := ParseDate("someday"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
