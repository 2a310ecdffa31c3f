package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/recallhq/memory-api/internal/constants"
	"github.com/recallhq/memory-api/internal/models"
)

// RecordStore is the slice of the record store the dispatcher needs: a
// lookup plus the three internal status mutators. The mutators bypass the
// change detector entirely, so a status write can never enqueue another
// sync job.
type RecordStore interface {
	Find(scope models.MemoryScope, id uint64) (*models.Memory, error)
	MarkProcessing(id uint64) error
	MarkCompleted(id uint64, externalID *string) error
	MarkFailed(id uint64, message string) error
}

// DispatcherOptions tunes the worker pool. Zero values fall back to the
// defaults (4 workers, 3 attempts, 10s between attempts).
type DispatcherOptions struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Dispatcher runs a pool of workers that execute sync jobs against the
// external memory service and write outcomes back into the record store.
//
// No ordering is guaranteed across jobs for the same record: two jobs may
// run on different workers in either order, so the final external content
// is decided by whichever job executes last.
type Dispatcher struct {
	queue       Dequeuer
	client      Client
	records     RecordStore
	logger      *slog.Logger
	workers     int
	maxAttempts int
	retryDelay  time.Duration
}

// NewDispatcher creates a dispatcher. The client is shared by all workers
// of this process; it must be safe for concurrent use (HTTPClient is).
func NewDispatcher(queue Dequeuer, client Client, records RecordStore, logger *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = constants.MaxSyncAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = constants.SyncRetryDelay
	}
	return &Dispatcher{
		queue:       queue,
		client:      client,
		records:     records,
		logger:      logger,
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// Run starts the worker pool and blocks until the context is cancelled
// and all in-flight jobs have finished. A dispatched job always runs to
// completion or exhausts its retry budget; cancellation only stops the
// pickup of new jobs.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, worker int) {
	logger := d.logger.With("worker", worker)
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		d.Process(job)
	}
}

// Process executes one job with the full retry budget: up to maxAttempts
// attempts with a fixed pause between them. Failures beyond the last
// attempt are not escalated; the record's failed status (or, for deletes,
// this log) is the only trace.
func (d *Dispatcher) Process(job Job) {
	logger := d.logger.With("job", job.ID, "op", string(job.Op), "scope", string(job.Scope), "memory", job.MemoryID)

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		done, err := d.attempt(job)
		if done {
			if err == nil && attempt > 1 {
				logger.Info("sync succeeded after retry", "attempt", attempt)
			}
			return
		}

		lastErr = err
		logger.Error("sync attempt failed", "attempt", attempt, "error", err)

		if attempt < d.maxAttempts {
			time.Sleep(d.retryDelay)
		}
	}

	logger.Error("sync retries exhausted", "attempts", d.maxAttempts, "error", lastErr)
}

// attempt runs one execution of the job. done reports that the job must
// not be retried, either because it succeeded or because the record is
// gone.
func (d *Dispatcher) attempt(job Job) (done bool, err error) {
	// Tasks run to completion regardless of caller-side deadlines.
	ctx := context.Background()

	switch job.Op {
	case OpCreate, OpUpdate:
		return d.attemptUpsert(ctx, job)
	case OpDelete:
		if err := d.client.Delete(ctx, job.ExternalID); err != nil {
			return false, err
		}
		d.logger.Info("deleted external memory", "job", job.ID, "external_id", job.ExternalID)
		return true, nil
	default:
		// Unknown ops are dropped; retrying cannot fix them.
		return true, fmt.Errorf("unknown sync op %q", job.Op)
	}
}

func (d *Dispatcher) attemptUpsert(ctx context.Context, job Job) (bool, error) {
	record, err := d.records.Find(job.Scope, job.MemoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Record was deleted before the job ran; nothing to sync.
			d.logger.Info("record gone before sync, dropping job", "job", job.ID, "memory", job.MemoryID)
			return true, nil
		}
		return false, err
	}

	if err := d.records.MarkProcessing(record.ID); err != nil {
		return false, err
	}

	switch job.Op {
	case OpCreate:
		// The record is re-read at execution time, so a create that runs
		// after a later content update pushes the latest stored content.
		externalID, err := d.client.Add(ctx, record.OwnerKey(), record.Content)
		if err != nil {
			return false, d.failRecord(record.ID, err)
		}
		if err := d.records.MarkCompleted(record.ID, &externalID); err != nil {
			return false, err
		}
		d.logger.Info("created external memory", "job", job.ID, "memory", record.ID, "external_id", externalID)
	case OpUpdate:
		// Updates push the content captured at enqueue time; with two
		// in-flight updates for one record, the last to execute wins.
		if err := d.client.Update(ctx, job.ExternalID, job.Content); err != nil {
			return false, d.failRecord(record.ID, err)
		}
		if err := d.records.MarkCompleted(record.ID, nil); err != nil {
			return false, err
		}
		d.logger.Info("updated external memory", "job", job.ID, "memory", record.ID, "external_id", job.ExternalID)
	}

	return true, nil
}

// failRecord marks the record failed with the sync error, ignoring a
// record that disappeared in the meantime, and returns the original error
// for the retry loop.
func (d *Dispatcher) failRecord(id uint64, cause error) error {
	if err := d.records.MarkFailed(id, cause.Error()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		d.logger.Error("failed to mark record failed", "memory", id, "error", err)
	}
	return cause
}
