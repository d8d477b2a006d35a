package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"donorboard/internal/analytics"
	"donorboard/internal/core"
	"donorboard/internal/session"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), ttl)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTable() *core.Table {
	return &core.Table{
		ID:       "table-1",
		Source:   "donors.csv",
		Format:   core.FormatCSV,
		Header:   core.RequiredColumns,
		LoadedAt: time.Now(),
		Records: []core.DonorRecord{
			{
				DonorName:      "Alice",
				GiftFrequency:  "Annual",
				LastGiftDate:   core.NewDate(2024, 1, 15),
				Donations2022:  decimal.NewNullDecimal(decimal.RequireFromString("100.50")),
				TotalDonations: decimal.NewNullDecimal(decimal.NewFromInt(300)),
			},
		},
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	s := session.New()
	s.Table = sampleTable()
	s.Params = analytics.Params{Year: core.AllYears, AvgTopN: 15, TopN: 30}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Drop the decoded-table cache so Get decodes the stored JSON.
	store.tables.Delete(s.Table.ID)

	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Params != s.Params {
		t.Fatalf("Params = %+v, want %+v", got.Params, s.Params)
	}
	if got.Table == nil || got.Table.Len() != 1 || got.Table.Format != core.FormatCSV {
		t.Fatalf("table not restored: %+v", got.Table)
	}
	rec := got.Table.Records[0]
	if rec.DonorName != "Alice" || rec.Donations2022.Decimal.String() != "100.5" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Donations2023.Valid {
		t.Fatalf("missing amount should stay missing")
	}
	if !rec.LastGiftDate.Equal(core.NewDate(2024, 1, 15).Time) {
		t.Fatalf("date = %v", rec.LastGiftDate)
	}
}

func TestSQLiteStoreUpdateAndDelete(t *testing.T) {
	store := newTestStore(t, time.Hour)
	ctx := context.Background()

	s := session.New()
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Params.TopN = 42
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, err := store.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Params.TopN != 42 || got.Table != nil {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, s.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	store := newTestStore(t, time.Minute)
	ctx := context.Background()

	stale := session.New()
	stale.Table = sampleTable()
	stale.UpdatedAt = time.Now().Add(-time.Hour)
	fresh := session.New()
	for _, s := range []*session.Session{stale, fresh} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if _, err := store.Get(ctx, stale.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("stale session should not be served, got %v", err)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	var tables int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM donor_tables").Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Fatalf("orphan table should be removed, %d left", tables)
	}
	if _, err := store.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session lost: %v", err)
	}
}

func TestSQLiteStoreSharedMemoryDSN(t *testing.T) {
	dsn := fmt.Sprintf("file:donorboard_%d?mode=memory&cache=shared", time.Now().UnixNano())
	store, err := NewSQLiteStore(dsn, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	s := session.New()
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("versions = %d, %d, want 2", v1, v2)
	}
}
