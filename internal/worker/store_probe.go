package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/employeedir/internal/observability/metrics"
)

// Pinger is the document store as seen by the probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreProbeWorker periodically pings the document store, exports the result as a gauge and
// logs when reachability changes
type StoreProbeWorker struct {
	store    Pinger
	backend  string
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	up bool
}

// NewStoreProbeWorker creates a new store probe
func NewStoreProbeWorker(store Pinger, backend string, logger *slog.Logger, interval time.Duration) *StoreProbeWorker {
	return &StoreProbeWorker{
		store:    store,
		backend:  backend,
		logger:   logger,
		interval: interval,
		timeout:  2 * time.Second,
		up:       true,
	}
}

// Start probes once immediately, then on every tick until ctx ends
func (w *StoreProbeWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("store probe started", slog.Duration("interval", w.interval))
	w.probe(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("store probe stopped")
			return
		case <-ticker.C:
			w.probe(ctx)
		}
	}
}

// probe reports whether the store answered
func (w *StoreProbeWorker) probe(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.store.Ping(pingCtx)
	up := err == nil
	metrics.SetStoreUp(up)

	switch {
	case !up && w.up:
		w.logger.Error("document store unreachable",
			slog.String("backend", w.backend),
			slog.String("error", err.Error()),
		)
	case up && !w.up:
		w.logger.Info("document store reachable again", slog.String("backend", w.backend))
	}
	w.up = up
	return up
}
