package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DatasetEvent records that a donor table became active somewhere. It holds
// metadata only, never donor rows.
type DatasetEvent struct {
	TableID    string
	SessionID  string
	Source     string
	Format     string
	Rows       int
	LoadedAt   time.Time
	ReceivedAt time.Time
}

// EventLog is the worker's record of dataset loads.
type EventLog struct {
	db *sql.DB
}

// NewEventLog opens dsn and applies migrations.
func NewEventLog(dsn string) (*EventLog, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}
	return &EventLog{db: db}, nil
}

func (l *EventLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (l *EventLog) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Record stores e. Redelivered events are ignored; it reports whether the
// event was new.
func (l *EventLog) Record(ctx context.Context, e DatasetEvent) (bool, error) {
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now()
	}
	query, args, err := sq.Insert("dataset_events").
		Options("OR IGNORE").
		Columns("table_id", "session_id", "source", "format", "row_count", "loaded_at", "received_at").
		Values(e.TableID, e.SessionID, e.Source, e.Format, e.Rows, e.LoadedAt.UnixMilli(), e.ReceivedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build event insert: %w", err)
	}
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert event %s: %w", e.TableID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Recent returns up to limit events, newest load first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]DatasetEvent, error) {
	query, args, err := sq.Select("table_id", "session_id", "source", "format", "row_count", "loaded_at", "received_at").
		From("dataset_events").
		OrderBy("loaded_at DESC", "table_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []DatasetEvent
	for rows.Next() {
		var (
			e                DatasetEvent
			loaded, received int64
		)
		if err := rows.Scan(&e.TableID, &e.SessionID, &e.Source, &e.Format, &e.Rows, &loaded, &received); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.LoadedAt = time.UnixMilli(loaded)
		e.ReceivedAt = time.UnixMilli(received)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes events loaded before cutoff.
func (l *EventLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("dataset_events").Where(sq.Lt{"loaded_at": cutoff.UnixMilli()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune: %w", err)
	}
	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
