package purge

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/AIRpwnz/b2purge/logger"
	"github.com/AIRpwnz/b2purge/model"
)

// Accountant owns the run counters. Every mutating method is called from
// the control goroutine only, after a batch has fully drained, so the
// struct needs no locking.
type Accountant struct {
	stats model.RunStats
	log   logger.Logger
}

func NewAccountant(log logger.Logger) *Accountant {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Accountant{log: log}
}

// Record books one terminal outcome from a live batch.
func (a *Accountant) Record(o model.Outcome) {
	a.stats.CandidateCount++
	switch o.Status {
	case model.StatusDeleted:
		a.stats.DeletedCount++
		a.stats.DeletedBytes += o.Candidate.Size
	case model.StatusFailed:
		a.stats.FailedCount++
		a.stats.FailedBytes += o.Candidate.Size
	}
}

// RecordDryRun books one candidate that would have been deleted.
func (a *Accountant) RecordDryRun(c model.Candidate) {
	a.stats.CandidateCount++
	a.stats.DeletedCount++
	a.stats.DeletedBytes += c.Size
}

// RecordBatch is called once per completed batch for progress reporting.
func (a *Accountant) RecordBatch(batchNum, deleted, failed int64) {
	a.stats.BatchCount = batchNum
	a.log.Info("Batch %d complete: deleted=%d failed=%d (total so far: %d deleted, %s)",
		batchNum, deleted, failed, a.stats.DeletedCount, humanize.Bytes(uint64(a.stats.DeletedBytes)))
}

// Finish stores the scan counter and returns the final stats.
func (a *Accountant) Finish(scanned int64) *model.RunStats {
	a.stats.ScannedCount = scanned
	return &a.stats
}

// FinalSummary renders the end-of-run report. The failure line is only
// present when at least one candidate could not be deleted.
func (a *Accountant) FinalSummary(dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("Dry run summary: Would delete %d files (%s would be freed)",
			a.stats.DeletedCount, humanize.Bytes(uint64(a.stats.DeletedBytes)))
	}

	summary := fmt.Sprintf("Operation complete: Deleted %d files (%s freed)",
		a.stats.DeletedCount, humanize.Bytes(uint64(a.stats.DeletedBytes)))
	if a.stats.FailedCount > 0 {
		summary += fmt.Sprintf("\nWARNING: %d files (%s) could not be deleted",
			a.stats.FailedCount, humanize.Bytes(uint64(a.stats.FailedBytes)))
	}
	return summary
}
