// Package worker records dataset events published by the dashboard.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"donorboard/internal/amqp"
	"donorboard/internal/log"
	"donorboard/internal/storage"
)

// EventRecorder stores dataset events.
type EventRecorder interface {
	Record(ctx context.Context, e storage.DatasetEvent) (bool, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventWorker turns dataset loaded messages into event log rows and keeps
// the log within its retention window.
type EventWorker struct {
	events    EventRecorder
	retention time.Duration
	now       func() time.Time
}

func NewEventWorker(events EventRecorder, retention time.Duration) *EventWorker {
	return &EventWorker{events: events, retention: retention, now: time.Now}
}

// HandleDatasetLoaded records one message. Messages without a table ID can
// never be stored and are rejected permanently.
func (w *EventWorker) HandleDatasetLoaded(ctx context.Context, msg *amqp.DatasetLoadedMessage) error {
	if strings.TrimSpace(msg.TableID) == "" {
		return fmt.Errorf("%w: message without table id", amqp.ErrPermanent)
	}

	loadedAt := msg.Timestamp
	if loadedAt.IsZero() {
		loadedAt = w.now()
	}
	added, err := w.events.Record(ctx, storage.DatasetEvent{
		TableID:    msg.TableID,
		SessionID:  msg.SessionID,
		Source:     msg.Source,
		Format:     msg.Format,
		Rows:       msg.Rows,
		LoadedAt:   loadedAt,
		ReceivedAt: w.now(),
	})
	if err != nil {
		return fmt.Errorf("record dataset event: %w", err)
	}

	if !added {
		slog.DebugContext(ctx, "Duplicate dataset event ignored",
			log.FieldComponent, log.ComponentWorker,
			log.FieldTableID, msg.TableID)
		return nil
	}
	slog.InfoContext(ctx, "Dataset event recorded",
		log.FieldComponent, log.ComponentWorker,
		log.FieldTableID, msg.TableID,
		log.FieldSessionID, msg.SessionID,
		log.FieldSource, msg.Source,
		log.FieldFormat, msg.Format,
		log.FieldRows, msg.Rows)
	return nil
}

// Prune removes events older than the retention window. A zero retention
// keeps everything.
func (w *EventWorker) Prune(ctx context.Context) (int64, error) {
	if w.retention <= 0 {
		return 0, nil
	}
	n, err := w.events.Prune(ctx, w.now().Add(-w.retention))
	if err != nil {
		return 0, fmt.Errorf("prune dataset events: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Old dataset events pruned",
			log.FieldComponent, log.ComponentWorker,
			"removed", n)
	}
	return n, nil
}

// RunPruner prunes immediately and then every interval until ctx is done.
func (w *EventWorker) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.Prune(ctx); err != nil {
			slog.ErrorContext(ctx, "Dataset event pruning failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
