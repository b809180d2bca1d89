package purge

import "time"

// Cutoff returns the epoch-millisecond boundary below which versions
// qualify for deletion: now minus the retention period.
func Cutoff(now time.Time, retentionDays int) int64 {
	return now.AddDate(0, 0, -retentionDays).UnixMilli()
}

// olderThan is the age predicate. Timestamps are compared as raw epoch
// milliseconds so the hot enumeration path never constructs time values.
func olderThan(uploadTimestamp, cutoff int64) bool {
	return uploadTimestamp < cutoff
}
