package sources

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"fedcorpus/pkg/models"
	"fedcorpus/pkg/utils"
)

// ExclusionSet is the per-run cache of URLs that must not be fetched
// again: seeded from the store's URL index, grown as documents are
// acquired. It is never persisted; the store's own log is authoritative.
type ExclusionSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewExclusionSet copies the seed set.
func NewExclusionSet(seed map[string]struct{}) *ExclusionSet {
	urls := make(map[string]struct{}, len(seed))
	for u := range seed {
		urls[u] = struct{}{}
	}
	return &ExclusionSet{urls: urls}
}

// Has reports whether url is excluded.
func (e *ExclusionSet) Has(url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.urls[url]
	return ok
}

// Add marks url as acquired.
func (e *ExclusionSet) Add(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.urls[url] = struct{}{}
}

// Len returns the current exclusion count.
func (e *ExclusionSet) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.urls)
}

// Stream drives one adapter over its candidate URLs and emits the
// documents it acquires. Up to workers FetchAndParse calls run
// concurrently, so documents arrive in completion order, not
// enumeration order.
//
// Per-URL failures never terminate the stream: skips are logged at
// warning level, errors (and panics) at error level, and the loop moves
// to the next candidate. The channel closes when enumeration and all
// in-flight fetches finish.
func Stream(ctx context.Context, adapter Adapter, excl *ExclusionSet, startYear, endYear, workers int, log *logrus.Entry) <-chan *models.Document {
	if workers < 1 {
		workers = 1
	}
	out := make(chan *models.Document)
	streamLog := log.WithField("category", adapter.Category().String())

	go func() {
		defer close(out)

		sem := semaphore.NewWeighted(int64(workers))
		var wg sync.WaitGroup

		for url := range adapter.EnumerateCandidateURLs(ctx, startYear, endYear) {
			if excl.Has(url) {
				streamLog.WithField("url", url).Debug("Skipping already stored URL")
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}

			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				defer sem.Release(1)
				defer func() {
					if r := recover(); r != nil {
						streamLog.WithField("url", url).Errorf("Panic while acquiring document: %v\n%s", r, debug.Stack())
					}
				}()

				doc, err := adapter.FetchAndParse(ctx, url)
				if err != nil {
					if errors.Is(err, ErrSkip) {
						streamLog.WithField("url", url).Warnf("Skipped: %v", err)
					} else {
						streamLog.WithFields(logrus.Fields{
							"url": url, "error_type": utils.CategorizeError(err),
						}).Errorf("Failed to acquire document: %v", err)
					}
					return
				}

				excl.Add(url)
				select {
				case out <- doc:
				case <-ctx.Done():
				}
			}(url)
		}

		wg.Wait()
	}()
	return out
}
