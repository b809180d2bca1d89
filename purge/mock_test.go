package purge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AIRpwnz/b2purge/model"
	"github.com/AIRpwnz/b2purge/storage"
)

var _ storage.StorageProvider = (*mockStorage)(nil)

// mockStorage simulates a storage provider: a fixed version listing plus
// scriptable per-version delete failures.
type mockStorage struct {
	mu sync.Mutex

	versions []model.RemoteVersion
	// listErrAfter: when >= 0, the stream fails after emitting this many versions
	listErrAfter int
	listErr      error

	accessErr   error
	accessCalls int32

	// deleteErrs holds, per version id, a queue of errors to return before
	// succeeding. An entry of nil means success for that call.
	deleteErrs  map[string][]error
	deleteCalls int64
	deleted     []string
	deleteDelay time.Duration

	active    int32
	maxActive int32
}

func newMockStorage(versions []model.RemoteVersion) *mockStorage {
	return &mockStorage{
		versions:     versions,
		listErrAfter: -1,
		deleteErrs:   make(map[string][]error),
	}
}

func (m *mockStorage) CheckAccess(ctx context.Context) error {
	atomic.AddInt32(&m.accessCalls, 1)
	return m.accessErr
}

func (m *mockStorage) ListVersionsStream(ctx context.Context, prefix string) (<-chan model.RemoteVersion, <-chan error) {
	// Unbuffered so the consumer observes versions and the terminal error
	// in the exact order the mock produces them.
	versionsCh := make(chan model.RemoteVersion)
	errCh := make(chan error, 1)

	go func() {
		defer close(versionsCh)
		defer close(errCh)

		for i, v := range m.versions {
			if m.listErrAfter >= 0 && i >= m.listErrAfter {
				errCh <- m.listErr
				return
			}
			select {
			case versionsCh <- v:
			case <-ctx.Done():
				return
			}
		}
		if m.listErrAfter >= 0 && m.listErrAfter >= len(m.versions) {
			errCh <- m.listErr
		}
	}()

	return versionsCh, errCh
}

func (m *mockStorage) DeleteVersion(ctx context.Context, id, name string) error {
	current := atomic.AddInt32(&m.active, 1)
	for {
		max := atomic.LoadInt32(&m.maxActive)
		if current <= max || atomic.CompareAndSwapInt32(&m.maxActive, max, current) {
			break
		}
	}
	if m.deleteDelay > 0 {
		time.Sleep(m.deleteDelay)
	}
	defer atomic.AddInt32(&m.active, -1)

	atomic.AddInt64(&m.deleteCalls, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if queue := m.deleteErrs[id]; len(queue) > 0 {
		err := queue[0]
		m.deleteErrs[id] = queue[1:]
		if err != nil {
			return err
		}
	}

	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStorage) GetCurrentRPS() int64 {
	return 0
}

func (m *mockStorage) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}
