// Package worker provides background workers for the newsroom service.
package worker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/metrics"
	"github.com/jonesrussell/newsroom/internal/workspace"
)

const (
	defaultSweepInterval = 15 * time.Minute
	defaultSweepTimeout  = 30 * time.Second
)

// WorkspaceStore lists the workspaces to sweep.
type WorkspaceStore interface {
	List(ctx context.Context) ([]database.Workspace, error)
}

// Sweeper removes items past their retention for one workspace.
type Sweeper interface {
	Sweep(ctx context.Context, workspaceID string, now time.Time) (int64, error)
}

// SweepWorker runs the janitor on a timer across all workspaces. Ingest
// batches sweep their own workspace opportunistically; this worker covers
// workspaces with quiet feeds that would otherwise never age anything out.
type SweepWorker struct {
	workspaces WorkspaceStore
	janitor    Sweeper
	locks      *workspace.Locks
	metrics    *metrics.Metrics
	logger     logger.Logger
	tracer     trace.Tracer

	interval     time.Duration
	sweepTimeout time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// SweepWorkerConfig holds configuration options
type SweepWorkerConfig struct {
	Interval     time.Duration
	SweepTimeout time.Duration
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(
	workspaces WorkspaceStore,
	janitor Sweeper,
	locks *workspace.Locks,
	m *metrics.Metrics,
	cfg SweepWorkerConfig,
	log logger.Logger,
) *SweepWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = defaultSweepTimeout
	}

	return &SweepWorker{
		workspaces:   workspaces,
		janitor:      janitor,
		locks:        locks,
		metrics:      m,
		logger:       log,
		tracer:       otel.Tracer("newsroom/worker"),
		interval:     cfg.Interval,
		sweepTimeout: cfg.SweepTimeout,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the sweep loop
func (w *SweepWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Sweep worker started",
		logger.Duration("interval", w.interval))
}

// Stop gracefully stops the worker
func (w *SweepWorker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Sweep worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *SweepWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *SweepWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.sweepAll(ctx)

	for {
		select {
		case <-ticker.C:
			w.sweepAll(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *SweepWorker) sweepAll(ctx context.Context) {
	listCtx, cancel := context.WithTimeout(ctx, w.sweepTimeout)
	workspaces, err := w.workspaces.List(listCtx)
	cancel()
	if err != nil {
		w.logger.Error("Failed to list workspaces for sweep", logger.Error(err))
		return
	}

	for i := range workspaces {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}
		w.sweepOne(ctx, workspaces[i].ID)
	}
}

func (w *SweepWorker) sweepOne(ctx context.Context, workspaceID string) {
	ctx, span := w.tracer.Start(ctx, "janitor.sweep",
		trace.WithAttributes(attribute.String("workspace_id", workspaceID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, w.sweepTimeout)
	defer cancel()

	// The ingest pipeline sweeps under the same lock, so a timed sweep never
	// races a batch in flight.
	lock := w.locks.Get(workspaceID)
	lock.Lock()
	removed, err := w.janitor.Sweep(ctx, workspaceID, time.Now().UTC())
	lock.Unlock()

	if err != nil {
		w.logger.Error("Sweep failed",
			logger.String("workspace_id", workspaceID),
			logger.Error(err))
		return
	}

	if w.metrics != nil && removed > 0 {
		w.metrics.ItemsSwept.WithLabelValues(workspaceID).Add(float64(removed))
	}
}
