package model

// RunStats aggregates counters for a single purge run. It is owned by the
// accountant and only ever touched from the control goroutine, after each
// batch has fully drained, so no locking is needed.
type RunStats struct {
	ScannedCount   int64 `json:"scanned_count"`
	CandidateCount int64 `json:"candidate_count"`
	DeletedCount   int64 `json:"deleted_count"`
	DeletedBytes   int64 `json:"deleted_bytes"`
	FailedCount    int64 `json:"failed_count"`
	FailedBytes    int64 `json:"failed_bytes"`
	BatchCount     int64 `json:"batch_count"`
}

// Failed reports whether any candidate could not be deleted.
func (s *RunStats) Failed() bool {
	return s.FailedCount > 0
}
