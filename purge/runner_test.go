package purge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AIRpwnz/b2purge/config"
	"github.com/AIRpwnz/b2purge/logger"
	"github.com/AIRpwnz/b2purge/model"
)

var runNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) int64 {
	return runNow.AddDate(0, 0, -days).UnixMilli()
}

func newTestRunner(st *mockStorage, cfg *config.PurgeConfig, log logger.Logger, dryRun bool) *Runner {
	r := NewRunner(st, cfg, log, dryRun)
	r.now = func() time.Time { return runNow }
	r.sleep = (&sleepRecorder{}).sleep
	return r
}

func TestRunner_DryRun(t *testing.T) {
	versions := []model.RemoteVersion{
		{ID: "v0", Name: "backups/a.tar", Size: 1000, UploadTimestamp: daysAgo(45)},
		{ID: "v1", Name: "backups/b.tar", Size: 2000, UploadTimestamp: daysAgo(5)},
		{ID: "v2", Name: "backups/c.tar", Size: 3000, UploadTimestamp: daysAgo(31)},
		{ID: "v3", Name: "backups/d.tar", Size: 4000, UploadTimestamp: daysAgo(1)},
		{ID: "v4", Name: "backups/e.tar", Size: 5000, UploadTimestamp: daysAgo(90)},
	}
	st := newMockStorage(versions)

	var out bytes.Buffer
	logCfg := &config.LoggerConfig{Level: config.LogLevelInfo}
	logCfg.ApplyDefaults()
	log := logger.NewLoggerWithWriter(logCfg, &out)

	cfg := &config.PurgeConfig{Prefix: "backups", RetentionDays: 30}
	r := newTestRunner(st, cfg, log, true)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(5), stats.ScannedCount)
	require.Equal(t, int64(3), stats.CandidateCount)
	require.Equal(t, int64(3), stats.DeletedCount)
	require.Equal(t, int64(9000), stats.DeletedBytes)
	require.Zero(t, stats.FailedCount)
	require.False(t, stats.Failed())

	require.Zero(t, st.deleteCalls, "dry run must never delete")

	output := out.String()
	require.Contains(t, output, "Would delete backups/a.tar")
	require.Contains(t, output, "Would delete backups/c.tar")
	require.Contains(t, output, "Would delete backups/e.tar")
	require.NotContains(t, output, "Would delete backups/b.tar")
	require.NotContains(t, output, "Would delete backups/d.tar")
	require.Contains(t, output, "Dry run summary: Would delete 3 files (9.0 kB would be freed)")

	// Reported in enumeration order
	idxA := strings.Index(output, "Would delete backups/a.tar")
	idxC := strings.Index(output, "Would delete backups/c.tar")
	idxE := strings.Index(output, "Would delete backups/e.tar")
	require.Less(t, idxA, idxC)
	require.Less(t, idxC, idxE)
}

func TestRunner_LiveMixed(t *testing.T) {
	versions := []model.RemoteVersion{
		{ID: "v0", Name: "backups/a.tar", Size: 100, UploadTimestamp: daysAgo(60)},
		{ID: "v1", Name: "backups/b.tar", Size: 200, UploadTimestamp: daysAgo(60)},
		{ID: "v2", Name: "backups/c.tar", Size: 300, UploadTimestamp: daysAgo(60)},
	}
	st := newMockStorage(versions)
	st.deleteErrs["v1"] = []error{errors.New("access denied")}

	cfg := &config.PurgeConfig{RetentionDays: 30, WorkerCount: 2}
	r := newTestRunner(st, cfg, nil, false)

	stats, err := r.Run(context.Background())
	require.NoError(t, err, "candidate failures do not abort the run")

	require.Equal(t, int64(3), stats.CandidateCount)
	require.Equal(t, int64(2), stats.DeletedCount)
	require.Equal(t, int64(400), stats.DeletedBytes)
	require.Equal(t, int64(1), stats.FailedCount)
	require.Equal(t, int64(200), stats.FailedBytes)
	require.True(t, stats.Failed())
	require.ElementsMatch(t, []string{"v0", "v2"}, st.deletedIDs())
}

func TestRunner_BatchSequencing(t *testing.T) {
	st := newMockStorage(makeVersions(5, daysAgo(60)))

	cfg := &config.PurgeConfig{RetentionDays: 30, WorkerCount: 2, BatchSize: 2}
	r := newTestRunner(st, cfg, nil, false)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(3), stats.BatchCount, "5 candidates with batch size 2 run in 3 batches")
	require.Equal(t, int64(5), stats.DeletedCount)
}

func TestRunner_AuthFailureAborts(t *testing.T) {
	st := newMockStorage(makeVersions(3, daysAgo(60)))
	st.accessErr = errors.New("bucket is not accessible: forbidden")

	cfg := &config.PurgeConfig{RetentionDays: 30}
	r := newTestRunner(st, cfg, nil, false)

	stats, err := r.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not accessible")
	require.Nil(t, stats)
	require.Zero(t, st.deleteCalls)
	require.Equal(t, int32(1), st.accessCalls)
}

func TestRunner_EnumerationFailureAborts(t *testing.T) {
	st := newMockStorage(makeVersions(10, daysAgo(60)))
	st.listErrAfter = 3
	st.listErr = errors.New("failed to list versions in backups/: boom")

	cfg := &config.PurgeConfig{RetentionDays: 30, BatchSize: 100}
	r := newTestRunner(st, cfg, nil, false)

	stats, err := r.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to list versions")
	require.Nil(t, stats)
	require.Zero(t, st.deleteCalls, "partial batch before the error is never deleted")
}

func TestRunner_EmptyBucket(t *testing.T) {
	st := newMockStorage(nil)

	var out bytes.Buffer
	logCfg := &config.LoggerConfig{Level: config.LogLevelInfo}
	logCfg.ApplyDefaults()
	log := logger.NewLoggerWithWriter(logCfg, &out)

	cfg := &config.PurgeConfig{RetentionDays: 30}
	r := newTestRunner(st, cfg, log, false)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.ScannedCount)
	require.Zero(t, stats.CandidateCount)
	require.Contains(t, out.String(), "Operation complete: Deleted 0 files (0 B freed)")
}
