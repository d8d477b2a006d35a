package backend

import (
	"context"
	"time"

	"donorboard/internal/cache"
	"donorboard/internal/loader"
	"donorboard/internal/session"
)

// Cache is a cache whose counters are reported and whose expired entries
// are swept by the cache manager.
type Cache interface {
	cache.Cleaner
	Stats() cache.Stats
}

// Pinger is a dependency a readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds what the server needs to run against a data source and a
// session store.
type Result struct {
	// Source is nil in upload mode.
	Source loader.Source
	Store  session.Store

	// Caches are reported on /metrics and swept periodically.
	Caches map[string]Cache
	// Cleaners are swept periodically but not reported.
	Cleaners map[string]cache.Cleaner
	Pingers  map[string]Pinger
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Source SourceType
	Store  StoreType

	// File source
	DataFilePath string

	// Google Sheets source
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Session store
	SQLiteDBPath     string
	SessionTTL       time.Duration
	SessionCacheSize int
}

// SourceType selects where the donor table comes from.
type SourceType string

const (
	UploadSource SourceType = "upload"
	FileSource   SourceType = "file"
	SheetsSource SourceType = "sheets"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case UploadSource, FileSource, SheetsSource:
		return true
	default:
		return false
	}
}

// StoreType selects where sessions are kept.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
)

func (st StoreType) String() string {
	return string(st)
}

func (st StoreType) IsValid() bool {
	return st == MemoryStore || st == SQLiteStore
}
