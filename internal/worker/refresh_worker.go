package worker

import (
	"context"
	"log/slog"
	"time"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshWorker pulls the order list on a fixed interval. There is no push
// channel; this is the only way remote changes by another actor show up.
type RefreshWorker struct {
	view     Refresher
	interval time.Duration
}

func NewRefreshWorker(view Refresher, interval time.Duration) *RefreshWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &RefreshWorker{view: view, interval: interval}
}

// Start blocks until ctx is done. onRefresh, if set, runs after every attempt.
func (w *RefreshWorker) Start(ctx context.Context, onRefresh func(error)) {
	slog.Info("starting refresh worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh worker stopped")
			return
		case <-ticker.C:
			err := w.view.Refresh(ctx)
			if err != nil {
				slog.Error("refresh failed", "error", err)
			}
			if onRefresh != nil {
				onRefresh(err)
			}
		}
	}
}
