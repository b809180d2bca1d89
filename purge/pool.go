package purge

import (
	"context"
	"time"

	"github.com/AIRpwnz/b2purge/logger"
	"github.com/AIRpwnz/b2purge/model"
	"github.com/AIRpwnz/b2purge/storage"
)

// pool deletes one batch of candidates with bounded concurrency. A fresh
// pool is built per batch; workers hold no state across batches.
type pool struct {
	storage storage.StorageProvider
	policy  *Policy
	log     logger.Logger
	workers int
	sleep   func(context.Context, time.Duration) error
}

func newPool(st storage.StorageProvider, policy *Policy, log logger.Logger, workers int, sleep func(context.Context, time.Duration) error) *pool {
	if workers < 1 {
		workers = 1
	}
	if sleep == nil {
		sleep = sleepCtx
	}
	return &pool{
		storage: st,
		policy:  policy,
		log:     log,
		workers: workers,
		sleep:   sleep,
	}
}

// sleepCtx pauses for d, honouring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run deletes every candidate in the batch and returns one outcome per
// candidate. It returns only after all workers have drained; outcome
// order is completion order, not batch order. A failed candidate never
// aborts the rest of the batch.
func (p *pool) run(ctx context.Context, batch []model.Candidate) []model.Outcome {
	workers := p.workers
	if workers > len(batch) {
		workers = len(batch)
	}

	jobs := make(chan model.Candidate, len(batch))
	results := make(chan model.Outcome, len(batch))

	for w := 0; w < workers; w++ {
		go func(workerID int) {
			wlog := p.log.With("worker", workerID)
			for c := range jobs {
				results <- p.deleteWithRetry(ctx, wlog, c)
			}
		}(w)
	}

	for _, c := range batch {
		jobs <- c
	}
	close(jobs)

	outcomes := make([]model.Outcome, 0, len(batch))
	for i := 0; i < len(batch); i++ {
		outcomes = append(outcomes, <-results)
	}
	return outcomes
}

// deleteWithRetry drives one candidate to a terminal state: deleted, or
// failed after a non-retryable error or retry exhaustion.
func (p *pool) deleteWithRetry(ctx context.Context, log logger.Logger, c model.Candidate) model.Outcome {
	for attempt := 0; ; attempt++ {
		log.Verbose("Deleting %s (version %s), attempt %d", c.Name, c.ID, attempt+1)

		err := p.storage.DeleteVersion(ctx, c.ID, c.Name)
		if err == nil {
			log.Debug("Deleted %s (version %s)", c.Name, c.ID)
			return model.Outcome{Candidate: c, Status: model.StatusDeleted}
		}

		if !p.policy.IsRateLimited(err) {
			log.Error("Failed to delete %s: %v", c.Name, err)
			return model.Outcome{Candidate: c, Status: model.StatusFailed, Err: err}
		}

		if attempt >= p.policy.MaxRetries {
			log.Error("Giving up on %s after %d attempts: %v", c.Name, attempt+1, err)
			return model.Outcome{Candidate: c, Status: model.StatusFailed, Err: err}
		}

		delay := p.policy.Backoff(attempt)
		log.Warn("Rate limited deleting %s, retrying in %v", c.Name, delay)
		if serr := p.sleep(ctx, delay); serr != nil {
			return model.Outcome{Candidate: c, Status: model.StatusFailed, Err: serr}
		}
	}
}
