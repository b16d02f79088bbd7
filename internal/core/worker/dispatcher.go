// Package worker runs the notarization dispatcher: a bounded pool of
// consumers draining the work queue and driving workflow runs.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	redisq "github.com/ingmarAvocado/abs-worker/internal/infra/redis"
)

// JobSource supplies queued jobs.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*redisq.Job, bool, error)
}

// Runner executes one workflow run. Terminal outcomes are persisted by the
// runner itself; the dispatcher only reports.
type Runner interface {
	Run(ctx context.Context, recordID string) error
}

// Dispatcher consumes the work queue with bounded concurrency.
type Dispatcher struct {
	source         JobSource
	runner         Runner
	concurrency    int
	dequeueTimeout time.Duration
	log            *slog.Logger
	wg             sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(source JobSource, runner Runner, concurrency int, dequeueTimeout time.Duration, log *slog.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 10
	}
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}
	return &Dispatcher{
		source:         source,
		runner:         runner,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		log:            log,
	}
}

// Start launches the consumer pool. Consumers exit when ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info("dispatcher started", "concurrency", d.concurrency)
	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			d.consume(ctx, worker)
		}(i)
	}
}

// Wait blocks until all consumers have exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) consume(ctx context.Context, worker int) {
	for ctx.Err() == nil {
		job, ok, err := d.source.Dequeue(ctx, d.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Warn("dequeue failed", "worker", worker, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}

		d.log.Debug("job picked up", "worker", worker, "job_id", job.ID, "record_id", job.RecordID)

		if err := d.runner.Run(ctx, job.RecordID); err != nil {
			// The workflow has already persisted and logged the failure;
			// surface the job association here.
			d.log.Warn("job failed", "worker", worker, "job_id", job.ID, "record_id", job.RecordID, "error", err)
		}
	}
}
