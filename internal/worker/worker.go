package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/csvtree/csvtree-api/internal/repository"
	"github.com/csvtree/csvtree-api/internal/service"
)

// Worker polls for pending batches and runs them.
type Worker struct {
	batchRepo    repository.BatchRepository
	runner       *service.BatchRunner
	pollInterval time.Duration
	concurrency  int
	stop         chan struct{}
	wg           sync.WaitGroup
	inFlight     atomic.Int64
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
	Concurrency  int
}

// New creates a new worker.
func New(batchRepo repository.BatchRepository, runner *service.BatchRunner, cfg Config, logger *slog.Logger) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		batchRepo:    batchRepo,
		runner:       runner,
		pollInterval: cfg.PollInterval,
		concurrency:  cfg.Concurrency,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins polling for batches.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "concurrency", w.concurrency, "poll_interval", w.pollInterval)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.runLoop(ctx, i)
	}
}

// Stop gracefully stops the worker. An in-flight batch finishes its current
// record before the loop exits.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processNextBatch(ctx, workerID)
		}
	}
}

// Busy reports whether any batch is currently being processed. The idle
// monitor uses this to keep the machine alive during a run.
func (w *Worker) Busy() bool {
	return w.inFlight.Load() > 0
}

func (w *Worker) processNextBatch(ctx context.Context, workerID int) {
	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	batch, err := w.batchRepo.ClaimPending(ctx)
	if err != nil {
		w.logger.Error("failed to claim batch", "worker_id", workerID, "error", err)
		return
	}
	if batch == nil {
		return
	}

	w.logger.Info("processing batch", "worker_id", workerID, "batch_id", batch.ID, "records", batch.TotalRecords)

	if err := w.runner.Run(ctx, batch); err != nil {
		w.logger.Error("batch run failed", "worker_id", workerID, "batch_id", batch.ID, "error", err)
	}
}
