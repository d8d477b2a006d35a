// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of the dashboard controls carried on
// htmx requests.

package http

import (
	"net/url"
	"strconv"
	"strings"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
)

// Query parameters of the cultivation partials.
const (
	paramYear    = "year"
	paramAvgTopN = "avg_top_n"
	paramTopN    = "top_n"
	paramSection = "section"
)

// ParseSliceSize reads a slider value. A missing or malformed value keeps
// current; anything else is clamped to the slider bounds.
func ParseSliceSize(q url.Values, key string, current int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return analytics.ClampSliceSize(current)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return analytics.ClampSliceSize(current)
	}
	if n == 0 {
		// Zero would mean "default" to the clamp; an explicit 0 is below range.
		return analytics.MinSliceSize
	}
	return analytics.ClampSliceSize(n)
}

// ParseYear reads the year selector. A missing value keeps current; an
// unknown label is an error.
func ParseYear(q url.Values, current core.YearOption) (core.YearOption, error) {
	v := strings.TrimSpace(q.Get(paramYear))
	if v == "" {
		return current, nil
	}
	return core.ParseYearOption(v)
}

// ParseParams applies every control present in q on top of current.
func ParseParams(q url.Values, current analytics.Params) (analytics.Params, error) {
	p := current.Normalize()
	year, err := ParseYear(q, p.Year)
	if err != nil {
		return p, err
	}
	p.Year = year
	p.AvgTopN = ParseSliceSize(q, paramAvgTopN, p.AvgTopN)
	p.TopN = ParseSliceSize(q, paramTopN, p.TopN)
	return p, nil
}
