// Package storage implements the SQLite-backed session store and the
// dataset event log.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"donorboard/internal/cache"
	"donorboard/internal/core"
	"donorboard/internal/log"
	"donorboard/internal/session"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions and their uploaded tables. Tables are stored
// as JSON and decoded tables are kept in a small LRU.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	tables *cache.LRUCache[*core.Table]
}

var _ session.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn and applies migrations.
func NewSQLiteStore(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		ttl:    ttl,
		tables: cache.NewLRUCache[*core.Table](32, ttl),
	}, nil
}

// openSQLite opens dsn and applies migrations. A "file:" DSN is used as is;
// a plain path gets its directory created.
func openSQLite(dsn string) (*sql.DB, error) {
	if !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One long-lived connection keeps a shared in-memory database alive and
	// serializes writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get loads a session. Sessions idle longer than the TTL are not found.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*session.Session, error) {
	query, args, err := sq.Select("id", "table_id", "year", "avg_top_n", "top_n", "created_at", "updated_at").
		From("sessions").
		Where(sq.Eq{"id": id}).
		Where(sq.GtOrEq{"updated_at": s.cutoff()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	var (
		out              session.Session
		tableID          sql.NullString
		year             string
		created, updated int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&out.ID, &tableID, &year, &out.Params.AvgTopN, &out.Params.TopN, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	out.Params.Year = core.YearOption(year)
	out.Params = out.Params.Normalize()
	out.CreatedAt = time.UnixMilli(created)
	out.UpdatedAt = time.UnixMilli(updated)

	if tableID.Valid {
		t, err := s.table(ctx, tableID.String)
		if err != nil {
			return nil, err
		}
		out.Table = t
	}
	return &out, nil
}

func (s *SQLiteStore) table(ctx context.Context, id string) (*core.Table, error) {
	if t, ok := s.tables.Get(id); ok {
		return t, nil
	}

	query, args, err := sq.Select("source", "format", "header", "records", "loaded_at").
		From("donor_tables").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build table query: %w", err)
	}

	var (
		t               = core.Table{ID: id}
		format          string
		header, records []byte
		loaded          int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&t.Source, &format, &header, &records, &loaded)
	if err != nil {
		return nil, fmt.Errorf("get table %s: %w", id, err)
	}
	t.Format = core.Format(format)
	t.LoadedAt = time.UnixMilli(loaded)
	if err := json.Unmarshal(header, &t.Header); err != nil {
		return nil, fmt.Errorf("decode table header: %w", err)
	}
	if err := json.Unmarshal(records, &t.Records); err != nil {
		return nil, fmt.Errorf("decode table records: %w", err)
	}

	s.tables.Set(id, &t)
	return &t, nil
}

// Save upserts the session and, when new, its table.
func (s *SQLiteStore) Save(ctx context.Context, sess *session.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var tableID any
	if t := sess.Table; t != nil {
		tableID = t.ID
		if err := s.insertTable(ctx, tx, t); err != nil {
			return err
		}
	}

	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	query, args, err := sq.Insert("sessions").
		Columns("id", "table_id", "year", "avg_top_n", "top_n", "created_at", "updated_at").
		Values(sess.ID, tableID, string(sess.Params.Year), sess.Params.AvgTopN, sess.Params.TopN,
			sess.CreatedAt.UnixMilli(), updated.UnixMilli()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			table_id = excluded.table_id,
			year = excluded.year,
			avg_top_n = excluded.avg_top_n,
			top_n = excluded.top_n,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build session upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	if sess.Table != nil {
		s.tables.Set(sess.Table.ID, sess.Table)
	}
	return nil
}

func (s *SQLiteStore) insertTable(ctx context.Context, tx *sql.Tx, t *core.Table) error {
	if _, ok := s.tables.Get(t.ID); ok {
		return nil
	}
	header, err := json.Marshal(t.Header)
	if err != nil {
		return fmt.Errorf("encode table header: %w", err)
	}
	records, err := json.Marshal(t.Records)
	if err != nil {
		return fmt.Errorf("encode table records: %w", err)
	}

	query, args, err := sq.Insert("donor_tables").
		Columns("id", "source", "format", "header", "records", "row_count", "loaded_at").
		Values(t.ID, t.Source, string(t.Format), header, records, t.Len(), t.LoadedAt.UnixMilli()).
		Suffix("ON CONFLICT(id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build table insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save table %s: %w", t.ID, err)
	}
	return nil
}

// Delete removes a session. Its table is collected by Cleanup.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query, args, err := sq.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build session delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Cleanup removes expired sessions and tables no session references.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete("sessions").Where(sq.Lt{"updated_at": s.cutoff()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	removed, _ := res.RowsAffected()

	query, args, err = sq.Delete("donor_tables").
		Where("id NOT IN (SELECT table_id FROM sessions WHERE table_id IS NOT NULL)").
		ToSql()
	if err != nil {
		return removed, fmt.Errorf("build table cleanup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return removed, fmt.Errorf("delete orphan tables: %w", err)
	}

	if removed > 0 {
		slog.InfoContext(ctx, "Expired sessions removed",
			log.FieldComponent, log.ComponentStorage,
			"removed", removed)
	}
	return removed, nil
}

// CleanExpired adapts Cleanup to the cache manager's cleanup loop.
func (s *SQLiteStore) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := s.Cleanup(ctx)
	if err != nil {
		slog.Error("Session cleanup failed",
			log.FieldComponent, log.ComponentStorage,
			log.FieldError, err)
	}
	s.tables.CleanExpired()
	return int(n)
}

func (s *SQLiteStore) cutoff() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return time.Now().Add(-s.ttl).UnixMilli()
}
