package purge

import (
	"context"
	"sync/atomic"

	"github.com/AIRpwnz/b2purge/model"
	"github.com/AIRpwnz/b2purge/storage"
)

// Enumerator consumes the provider's version listing as a stream, applies
// the age filter and groups matching versions into bounded batches. Peak
// memory is one batch plus the stream buffers, regardless of bucket size.
// An Enumerator is single-use: Batches must be called at most once.
type Enumerator struct {
	storage   storage.StorageProvider
	prefix    string
	cutoff    int64
	batchSize int
	scanned   int64
}

func NewEnumerator(st storage.StorageProvider, prefix string, cutoff int64, batchSize int) *Enumerator {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Enumerator{
		storage:   st,
		prefix:    prefix,
		cutoff:    cutoff,
		batchSize: batchSize,
	}
}

// Scanned returns how many listing records have been seen so far.
func (e *Enumerator) Scanned() int64 {
	return atomic.LoadInt64(&e.scanned)
}

// Batches streams batches of candidates in provider listing order. Full
// batches are emitted as soon as they fill up; the final batch may be
// partial. A listing error discards the partially built batch and ends
// the stream with that error.
func (e *Enumerator) Batches(ctx context.Context) (<-chan []model.Candidate, <-chan error) {
	batchCh := make(chan []model.Candidate, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(batchCh)
		defer close(errCh)

		buf := make([]model.Candidate, 0, e.batchSize)
		versionsCh, listErrCh := e.storage.ListVersionsStream(ctx, e.prefix)

		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return

			case err, ok := <-listErrCh:
				if ok && err != nil {
					// Nothing half-built is ever emitted.
					errCh <- err
					return
				}
				if !ok {
					listErrCh = nil
				}

			case v, ok := <-versionsCh:
				if !ok {
					// The listing goroutine closes its error channel after
					// sending, so a final blocking read settles whether the
					// stream ended cleanly.
					if listErrCh != nil {
						if err, ok := <-listErrCh; ok && err != nil {
							errCh <- err
							return
						}
					}
					if len(buf) > 0 {
						select {
						case batchCh <- buf:
						case <-ctx.Done():
							errCh <- ctx.Err()
						}
					}
					return
				}

				atomic.AddInt64(&e.scanned, 1)
				if !olderThan(v.UploadTimestamp, e.cutoff) {
					continue
				}

				buf = append(buf, v)
				if len(buf) >= e.batchSize {
					select {
					case batchCh <- buf:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
					buf = make([]model.Candidate, 0, e.batchSize)
				}
			}
		}
	}()

	return batchCh, errCh
}
