package backend

import (
	"context"
	"fmt"

	"donorboard/internal/cache"
	"donorboard/internal/loader"
	"donorboard/internal/loader/sheets"
	"donorboard/internal/log"
	"donorboard/internal/session"
	"donorboard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentApp),
	}
}

// Create builds the data source and session store described by config.
// Fixed sources are wrapped so the table is read once per process.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Caches:   make(map[string]Cache),
		Cleaners: make(map[string]cache.Cleaner),
		Pingers:  make(map[string]Pinger),
	}

	src, err := f.createSource(ctx, config)
	if err != nil {
		return nil, err
	}
	if src != nil {
		res.Source = loader.NewCachedSource(src)
	}

	switch config.Store {
	case SQLiteStore:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath, config.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		res.Store = store
		res.Cleaners["sessions"] = store
		res.Pingers["sqlite"] = store
		res.Cleanup = store.Close
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
	default:
		store := session.NewMemoryStore(config.SessionCacheSize, config.SessionTTL)
		res.Store = store
		res.Caches["sessions"] = store.Cache()
		f.logger.Info("Initialized in-memory session store", "size", config.SessionCacheSize)
	}

	return res, nil
}

func (f *DefaultFactory) createSource(ctx context.Context, config Config) (loader.Source, error) {
	switch config.Source {
	case FileSource:
		f.logger.Info("Reading donor data from file", log.FieldSource, config.DataFilePath)
		return loader.FileSource{Path: config.DataFilePath}, nil
	case SheetsSource:
		src, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			Range:              config.GoogleSheetRange,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets source: %w", err)
		}
		f.logger.Info("Reading donor data from Google Sheets", log.FieldSource, src.Name())
		return src, nil
	}
	f.logger.Info("Donor data is uploaded per session")
	return nil, nil
}
