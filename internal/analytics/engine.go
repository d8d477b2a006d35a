package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"donorboard/internal/cache"
	"donorboard/internal/core"
	"donorboard/internal/log"
)

// View names, also used as memo keys and chart routes.
const (
	ViewGiftFrequency = "gift_frequency"
	ViewTimeline      = "last_gift_timeline"
	ViewYearlyTotals  = "yearly_totals"
	ViewAttendance    = "event_attendance"
	ViewAverages      = "average_donations"
	ViewTopAverage    = "top_average_donors"
	ViewRanking       = "top_bottom_by_year"
)

// Params are the control values a render depends on.
type Params struct {
	Year    core.YearOption
	AvgTopN int
	TopN    int
}

// DefaultParams matches the initial control positions.
func DefaultParams() Params {
	return Params{Year: core.Year2022, AvgTopN: DefaultSliceSize, TopN: DefaultSliceSize}
}

// Normalize clamps slider values and defaults an unknown year.
func (p Params) Normalize() Params {
	if _, err := core.ParseYearOption(string(p.Year)); err != nil {
		p.Year = core.Year2022
	}
	p.AvgTopN = ClampSliceSize(p.AvgTopN)
	p.TopN = ClampSliceSize(p.TopN)
	return p
}

// Result is the outcome of one view: a value or the error that prevented it.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the view was computed.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Dashboard carries every view of one render. A failed view does not blank
// the others.
type Dashboard struct {
	GiftFrequency Result[[]Count]
	Timeline      Result[Histogram]
	YearlyTotals  Result[[]ColumnAmount]
	Attendance    Result[[]Count]
	Averages      Result[[]ColumnAmount]
	TopAverage    Result[[]RankedDonor]
	Ranking       Result[Ranking]
}

// Errors returns the failed views keyed by name.
func (d Dashboard) Errors() map[string]error {
	out := map[string]error{}
	add := func(name string, err error) {
		if err != nil {
			out[name] = err
		}
	}
	add(ViewGiftFrequency, d.GiftFrequency.Err)
	add(ViewTimeline, d.Timeline.Err)
	add(ViewYearlyTotals, d.YearlyTotals.Err)
	add(ViewAttendance, d.Attendance.Err)
	add(ViewAverages, d.Averages.Err)
	add(ViewTopAverage, d.TopAverage.Err)
	add(ViewRanking, d.Ranking.Err)
	return out
}

// Engine memoizes views by (table, view, parameters) so a control change only
// recomputes the views that depend on it.
type Engine struct {
	memo     *cache.LRUCache[any]
	computed atomic.Int64
}

// NewEngine creates an engine holding up to size memoized views.
func NewEngine(size int) *Engine {
	return &Engine{memo: cache.NewLRUCache[any](size, 0)}
}

// Cache exposes the memo for cleanup registration and stats.
func (e *Engine) Cache() *cache.LRUCache[any] {
	return e.memo
}

// Computations returns how many views were computed rather than served from
// the memo.
func (e *Engine) Computations() int64 {
	return e.computed.Load()
}

// Forget drops every memoized view of a table.
func (e *Engine) Forget(tableID string) {
	e.memo.DeletePrefix(tableID + "|")
}

// Compute evaluates all views for one render.
func (e *Engine) Compute(ctx context.Context, t *core.Table, p Params) Dashboard {
	p = p.Normalize()
	return Dashboard{
		GiftFrequency: e.GiftFrequency(ctx, t),
		Timeline:      e.Timeline(ctx, t),
		YearlyTotals:  e.YearlyTotals(ctx, t),
		Attendance:    e.Attendance(ctx, t),
		Averages:      e.Averages(ctx, t),
		TopAverage:    e.TopAverage(ctx, t, p.AvgTopN),
		Ranking:       e.Ranking(ctx, t, p.Year, p.TopN),
	}
}

func (e *Engine) GiftFrequency(ctx context.Context, t *core.Table) Result[[]Count] {
	return memo(ctx, e, t, ViewGiftFrequency, "", func() ([]Count, error) { return GiftFrequency(t) })
}

func (e *Engine) Timeline(ctx context.Context, t *core.Table) Result[Histogram] {
	return memo(ctx, e, t, ViewTimeline, "", func() (Histogram, error) { return LastGiftTimeline(t, TimelineBins) })
}

func (e *Engine) YearlyTotals(ctx context.Context, t *core.Table) Result[[]ColumnAmount] {
	return memo(ctx, e, t, ViewYearlyTotals, "", func() ([]ColumnAmount, error) { return YearlyTotals(t) })
}

func (e *Engine) Attendance(ctx context.Context, t *core.Table) Result[[]Count] {
	return memo(ctx, e, t, ViewAttendance, "", func() ([]Count, error) { return Attendance(t) })
}

func (e *Engine) Averages(ctx context.Context, t *core.Table) Result[[]ColumnAmount] {
	return memo(ctx, e, t, ViewAverages, "", func() ([]ColumnAmount, error) { return AverageDonations(t) })
}

func (e *Engine) TopAverage(ctx context.Context, t *core.Table, n int) Result[[]RankedDonor] {
	return memo(ctx, e, t, ViewTopAverage, strconv.Itoa(n), func() ([]RankedDonor, error) { return TopAverageDonors(t, n) })
}

func (e *Engine) Ranking(ctx context.Context, t *core.Table, year core.YearOption, n int) Result[Ranking] {
	params := string(year) + "/" + strconv.Itoa(n)
	return memo(ctx, e, t, ViewRanking, params, func() (Ranking, error) { return TopBottomByYear(t, year, n) })
}

// memo serves a view from the cache or computes it. Only successes are
// stored; a failed view is retried on the next render.
func memo[T any](ctx context.Context, e *Engine, t *core.Table, view, params string, fn func() (T, error)) Result[T] {
	if t.Empty() {
		return Result[T]{Err: core.ErrEmptyTable}
	}
	key := t.ID + "|" + view + "|" + params
	if v, ok := e.memo.Get(key); ok {
		if r, ok := v.(Result[T]); ok {
			return r
		}
	}

	e.computed.Add(1)
	r := guard(fn)
	if r.Err != nil {
		slog.WarnContext(ctx, "Dashboard view failed",
			log.FieldComponent, log.ComponentAnalytics,
			log.FieldView, view,
			log.FieldTableID, t.ID,
			log.FieldError, r.Err)
		return r
	}
	e.memo.Set(key, r)
	return r
}

// guard converts a panic inside a view into a computation failure.
func guard[T any](fn func() (T, error)) (r Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = Result[T]{Err: core.NewError(core.KindComputationFailure, "Failed to compute view", fmt.Errorf("panic: %v", p))}
		}
	}()
	v, err := fn()
	var ce *core.Error
	if err != nil && !errors.Is(err, core.ErrEmptyTable) && !errors.As(err, &ce) {
		err = core.NewError(core.KindComputationFailure, "Failed to compute view", err)
	}
	return Result[T]{Value: v, Err: err}
}
