package purge

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/AIRpwnz/b2purge/config"
	"github.com/AIRpwnz/b2purge/logger"
	"github.com/AIRpwnz/b2purge/model"
	"github.com/AIRpwnz/b2purge/storage"
)

// Runner drives a purge run: authorization check, cutoff computation,
// batch-by-batch enumeration and deletion, final summary. Batches are
// strictly sequential; batch N+1 does not start until batch N has fully
// drained, so at most WorkerCount deletes are outstanding at any instant.
type Runner struct {
	storage       storage.StorageProvider
	log           logger.Logger
	policy        *Policy
	prefix        string
	retentionDays int
	batchSize     int
	workerCount   int
	dryRun        bool

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRunner creates a new Runner with the provided dependencies
func NewRunner(st storage.StorageProvider, cfg *config.PurgeConfig, log logger.Logger, dryRun bool) *Runner {
	// Use NoOpLogger if none provided
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	cfg.ApplyDefaults()

	return &Runner{
		storage:       st,
		log:           log,
		policy:        NewPolicy(),
		prefix:        cfg.NormalizedPrefix(),
		retentionDays: cfg.RetentionDays,
		batchSize:     cfg.BatchSize,
		workerCount:   cfg.WorkerCount,
		dryRun:        dryRun,
		now:           time.Now,
		sleep:         sleepCtx,
	}
}

func (r *Runner) Run(ctx context.Context) (*model.RunStats, error) {
	r.log.Info("Starting purge run: prefix=%q retention=%d days workers=%d batch_size=%d dry_run=%v",
		r.prefix, r.retentionDays, r.workerCount, r.batchSize, r.dryRun)

	// Fail fast before any listing starts.
	if err := r.storage.CheckAccess(ctx); err != nil {
		r.log.Error("Authorization check failed: %v", err)
		return nil, err
	}

	cutoff := Cutoff(r.now(), r.retentionDays)
	r.log.Debug("Cutoff: versions uploaded before %s qualify for deletion",
		time.UnixMilli(cutoff).UTC().Format(time.RFC3339))

	acct := NewAccountant(r.log)
	enum := NewEnumerator(r.storage, r.prefix, cutoff, r.batchSize)
	batchCh, errCh := enum.Batches(ctx)

	// Start periodic RPS logging
	rpsTicker := time.NewTicker(1 * time.Second)
	defer rpsTicker.Stop()

	rpsCtx, rpsCancel := context.WithCancel(ctx)
	defer rpsCancel()

	go func() {
		for {
			select {
			case <-rpsCtx.Done():
				return
			case <-rpsTicker.C:
				rps := r.storage.GetCurrentRPS()
				if rps > 0 {
					r.log.Debug("Storage API: current RPS = %d req/s", rps)
				}
			}
		}
	}()

	var batchNum int64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errCh:
			if ok && err != nil {
				r.log.Error("Enumeration failed: %v", err)
				return nil, err
			}
			if !ok {
				errCh = nil
			}

		case batch, ok := <-batchCh:
			if !ok {
				// The enumerator sends its error before closing the batch
				// channel, so settle it here rather than declaring success.
				if errCh != nil {
					if err, ok := <-errCh; ok && err != nil {
						r.log.Error("Enumeration failed: %v", err)
						return nil, err
					}
				}
				stats := acct.Finish(enum.Scanned())
				r.log.Debug("Scanned %d versions, %d selected", stats.ScannedCount, stats.CandidateCount)
				r.log.Info(acct.FinalSummary(r.dryRun))
				return stats, nil
			}

			batchNum++
			if r.dryRun {
				r.reportBatch(batchNum, batch, acct)
			} else {
				r.deleteBatch(ctx, batchNum, batch, acct)
			}
		}
	}
}

// reportBatch handles one batch in dry-run mode: sequential iteration in
// enumeration order, so the output is deterministic.
func (r *Runner) reportBatch(batchNum int64, batch []model.Candidate, acct *Accountant) {
	for _, c := range batch {
		r.log.Info("Would delete %s (last modified: %s, size: %s)",
			c.Name,
			time.UnixMilli(c.UploadTimestamp).UTC().Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(c.Size)))
		acct.RecordDryRun(c)
	}
	acct.RecordBatch(batchNum, int64(len(batch)), 0)
}

// deleteBatch handles one batch in live mode through a fresh worker pool.
// Outcomes are booked only after the pool has fully drained.
func (r *Runner) deleteBatch(ctx context.Context, batchNum int64, batch []model.Candidate, acct *Accountant) {
	p := newPool(r.storage, r.policy, r.log, r.workerCount, r.sleep)
	outcomes := p.run(ctx, batch)

	var deleted, failed int64
	for _, o := range outcomes {
		acct.Record(o)
		if o.Status == model.StatusDeleted {
			deleted++
		} else {
			failed++
		}
	}
	acct.RecordBatch(batchNum, deleted, failed)
}
