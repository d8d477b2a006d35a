package loader

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"donorboard/internal/core"
	"donorboard/internal/log"

	"golang.org/x/sync/singleflight"
)

// Source produces a donor table without user interaction.
type Source interface {
	Load(ctx context.Context) (*core.Table, error)
	Name() string
}

// FileSource reads a fixed on-disk path.
type FileSource struct {
	Path string
}

// Name returns the path being read.
func (s FileSource) Name() string {
	return s.Path
}

// Load opens and decodes the file. A missing file is reported with its own
// kind so the page can say exactly which path is absent.
func (s FileSource) Load(ctx context.Context) (*core.Table, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.NewError(core.KindMissingFile, "Data file not found: "+s.Path, err)
	}
	if err != nil {
		return nil, core.NewError(core.KindReadFailure, "Failed to open data file", err)
	}
	defer f.Close()
	return load(ctx, filepath.Base(s.Path), f, "Failed to read data file")
}

// CachedSource memoizes the first successful load for the process lifetime.
// It is never invalidated by changes to the underlying data; failures are not
// cached so the next request tries again.
type CachedSource struct {
	src   Source
	group singleflight.Group

	mu    sync.RWMutex
	table *core.Table

	loads atomic.Int64
}

// NewCachedSource wraps src with a process-lifetime cache.
func NewCachedSource(src Source) *CachedSource {
	return &CachedSource{src: src}
}

// Name returns the wrapped source name.
func (c *CachedSource) Name() string {
	return c.src.Name()
}

// Load returns the cached table, loading it once on first use. Concurrent
// first callers share a single read.
func (c *CachedSource) Load(ctx context.Context) (*core.Table, error) {
	c.mu.RLock()
	tbl := c.table
	c.mu.RUnlock()
	if tbl != nil {
		return tbl, nil
	}

	v, err, shared := c.group.Do("table", func() (any, error) {
		c.mu.RLock()
		cached := c.table
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		c.loads.Add(1)
		// Waiters share this read, so one caller's cancellation must not fail it.
		t, err := c.src.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.table = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Fixed source load failed",
			log.FieldComponent, log.ComponentLoader,
			log.FieldSource, c.src.Name(),
			log.FieldError, err)
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Fixed source load shared",
			log.FieldComponent, log.ComponentLoader,
			log.FieldSource, c.src.Name())
	}
	return v.(*core.Table), nil
}

// Loaded reports whether the table is cached.
func (c *CachedSource) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table != nil
}

// Loads returns how many times the underlying source was read.
func (c *CachedSource) Loads() int64 {
	return c.loads.Load()
}
