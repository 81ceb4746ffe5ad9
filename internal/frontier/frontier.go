package frontier

import (
	"sync"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs through store.Reserve
- Enforce maxDepth and maxUrls
- Park idle workers until new work or drain
- Knows nothing about:
	- fetching
	- extraction
	- analysis

It is a data structure + policy module, not a pipeline executor.
*/

type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    FIFOQueue[CrawlToken]
	st       *store.Store
	maxDepth int
	maxUrls  int

	inFlight int
	stopped  bool
}

// NewFrontier builds a frontier that reserves fingerprints through st.
// maxDepth -1 means unlimited.
func NewFrontier(st *store.Store, maxDepth, maxUrls int) *Frontier {
	f := &Frontier{
		st:       st,
		maxDepth: maxDepth,
		maxUrls:  maxUrls,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue reserves the candidate's fingerprint and queues it when the
// reservation is fresh. Depth and URL-count limits are enforced here;
// duplicates are discarded silently.
func (f *Frontier) Enqueue(found resource.FoundURL, fetchOnly bool) EnqueueResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return EnqueueResult{Outcome: OutcomeSkipped, Reason: resource.SkipMaxUrlsReached}
	}
	if f.maxDepth >= 0 && found.Depth > f.maxDepth {
		return EnqueueResult{Outcome: OutcomeSkipped, Reason: resource.SkipTooDeep}
	}
	if f.st.ReservedCount() >= f.maxUrls {
		return EnqueueResult{Outcome: OutcomeSkipped, Reason: resource.SkipMaxUrlsReached}
	}

	fp, fresh := f.st.Reserve(found.URL, found.SourceFingerprint, found.SourceAttr)
	if !fresh {
		return EnqueueResult{Outcome: OutcomeDuplicate, Fingerprint: fp}
	}

	f.queue.Enqueue(NewCrawlToken(fp, found, fetchOnly))
	f.cond.Signal()
	return EnqueueResult{Outcome: OutcomeEnqueued, Fingerprint: fp}
}

// Dequeue blocks until a token is available, the crawl drains (queue
// empty and nothing in flight), or Stop is called. The second return
// is false on drain/stop. A successful dequeue counts as in-flight
// work until Done is called.
func (f *Frontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.stopped {
			return CrawlToken{}, false
		}
		if token, ok := f.queue.Dequeue(); ok {
			f.inFlight++
			return token, true
		}
		if f.inFlight == 0 {
			// drained: no queued work and nobody producing more
			f.cond.Broadcast()
			return CrawlToken{}, false
		}
		f.cond.Wait()
	}
}

// Done marks one dequeued token as fully processed (including its
// enqueues) and wakes parked workers so they can observe drain.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.cond.Broadcast()
}

// Stop makes all current and future Dequeues return false.
func (f *Frontier) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.cond.Broadcast()
}

// QueuedCount is the number of tokens waiting to be dequeued.
func (f *Frontier) QueuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Size()
}

// InFlightCount is the number of dequeued-but-unfinished tokens.
func (f *Frontier) InFlightCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}
