package jobs

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// QueueConfig configures the worker queue.
type QueueConfig struct {
	// Workers is the number of concurrent job runners. Default: 2
	Workers int

	// PollInterval is how often the store is scanned for waiting jobs.
	// Default: 2s
	PollInterval time.Duration

	// RetryBaseDelay is the first retry delay; each further attempt
	// doubles it. Default: 5s
	RetryBaseDelay time.Duration
}

// DefaultQueueConfig returns the default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:        2,
		PollInterval:   2 * time.Second,
		RetryBaseDelay: 5 * time.Second,
	}
}

// Queue dispatches waiting jobs from the store to a pool of workers. The
// store is the source of truth: jobs survive process restarts, and a
// restarted queue picks waiting jobs back up on its next scan.
type Queue struct {
	store *Store
	orch  *Orchestrator
	cfg   QueueConfig
	log   *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
	jobsCh chan string
}

// NewQueue creates a queue over the store, executing jobs with orch.
func NewQueue(store *Store, orch *Orchestrator, cfg QueueConfig, logger *zap.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultQueueConfig().Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultQueueConfig().PollInterval
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultQueueConfig().RetryBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		store:    store,
		orch:     orch,
		cfg:      cfg,
		log:      logger,
		inflight: make(map[string]struct{}),
		jobsCh:   make(chan string),
	}
}

// Submit creates a waiting job for the given inputs and persists it.
func (q *Queue) Submit(name string, inputs Inputs) (*Record, error) {
	rec, err := q.store.Submit(name, inputs)
	if err != nil {
		return nil, err
	}
	q.log.Info("job submitted",
		zap.String("job_id", rec.JobID),
		zap.String("name", name))
	return rec, nil
}

// Start launches the scanner and worker goroutines. Call Shutdown to stop.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	q.wg.Add(1)
	go q.scan(ctx)
}

// Shutdown stops dispatching and waits for in-flight jobs or the context,
// whichever comes first.
func (q *Queue) Shutdown(ctx context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scan periodically lists waiting jobs and feeds them to the workers.
func (q *Queue) scan(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	for {
		q.dispatchWaiting(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (q *Queue) dispatchWaiting(ctx context.Context) {
	waiting, err := q.store.ListByState(StateWaiting)
	if err != nil {
		q.log.Warn("scan waiting jobs", zap.Error(err))
		return
	}
	for i := range waiting {
		jobID := waiting[i].JobID
		if !q.claim(jobID) {
			continue
		}
		select {
		case q.jobsCh <- jobID:
		case <-ctx.Done():
			q.release(jobID)
			return
		}
	}
}

// claim marks a job as queued for dispatch. Returns false when it is
// already in flight.
func (q *Queue) claim(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[jobID]; ok {
		return false
	}
	q.inflight[jobID] = struct{}{}
	return true
}

func (q *Queue) release(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, jobID)
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-q.jobsCh:
			q.runJob(ctx, jobID)
			q.release(jobID)
		}
	}
}

// runJob executes a single claimed job with bounded retries. Every retry
// starts the pipeline over from the original inputs.
func (q *Queue) runJob(ctx context.Context, jobID string) {
	rec, err := q.store.Get(jobID)
	if err != nil {
		q.log.Warn("load job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if rec.State != StateWaiting {
		return
	}

	now := time.Now().UTC()
	rec.State = StateActive
	rec.StartedAt = &now
	rec.PID = os.Getpid()
	if err := q.store.Write(rec); err != nil {
		q.log.Warn("mark active", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	var lastErr error
	for rec.Attempts < MaxAttempts {
		rec.Attempts++
		if rec.Attempts > 1 {
			delay := q.cfg.RetryBaseDelay << (rec.Attempts - 2)
			q.log.Info("retrying job",
				zap.String("job_id", jobID),
				zap.Int("attempt", rec.Attempts),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		lastErr = q.orch.Run(ctx, rec)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		q.log.Warn("job attempt failed",
			zap.String("job_id", jobID),
			zap.Int("attempt", rec.Attempts),
			zap.Error(lastErr))
	}

	ended := time.Now().UTC()
	rec.EndedAt = &ended
	rec.PID = 0
	if lastErr != nil {
		rec.State = StateFailed
		rec.FailReason = lastErr.Error()
		rec.Message = "failed"
	} else {
		rec.State = StateCompleted
		rec.Message = "completed"
		rec.Progress = 100
	}
	if err := q.store.Write(rec); err != nil {
		q.log.Warn("persist final state", zap.String("job_id", jobID), zap.Error(err))
	}
	q.log.Info("job finished",
		zap.String("job_id", jobID),
		zap.String("state", string(rec.State)),
		zap.Int("attempts", rec.Attempts))
}
