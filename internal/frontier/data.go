package frontier

import (
	"github.com/rohmanhakim/site-auditor/internal/resource"
)

/*
 Frontier - manages crawl ordering and admission accounting
*/

// CrawlToken is the frontier-issued, per-URL unit of work.
// It represents: "this URL, at this depth, in FIFO order, is next".
// The fingerprint is already reserved in the store; no other worker
// will receive the same URL.
type CrawlToken struct {
	fingerprint string
	found       resource.FoundURL
	fetchOnly   bool
}

func NewCrawlToken(fingerprint string, found resource.FoundURL, fetchOnly bool) CrawlToken {
	return CrawlToken{
		fingerprint: fingerprint,
		found:       found,
		fetchOnly:   fetchOnly,
	}
}

func (c *CrawlToken) Fingerprint() string {
	return c.fingerprint
}

func (c *CrawlToken) Found() resource.FoundURL {
	return c.found
}

// FetchOnly marks static-external resources: fetched, and of their
// discoveries only a redirect target becomes a crawl candidate.
func (c *CrawlToken) FetchOnly() bool {
	return c.fetchOnly
}

// Outcome classifies one Enqueue call.
type Outcome int

const (
	// OutcomeEnqueued: freshly reserved and queued.
	OutcomeEnqueued Outcome = iota
	// OutcomeDuplicate: fingerprint already reserved; discarded silently.
	OutcomeDuplicate
	// OutcomeSkipped: rejected by a frontier limit; Reason is set.
	OutcomeSkipped
)

// EnqueueResult reports what Enqueue did with a candidate.
type EnqueueResult struct {
	Outcome     Outcome
	Reason      resource.SkipReason
	Fingerprint string
}

type FIFOQueue[T any] []T

func NewFIFOQueue[T any]() *FIFOQueue[T] {
	return &FIFOQueue[T]{}
}

func (f *FIFOQueue[T]) Enqueue(item T) {
	*f = append(*f, item)
}

// return false on the second returned value if queue is empty
func (f *FIFOQueue[T]) Dequeue() (T, bool) {
	var zero T
	if len(*f) == 0 {
		return zero, false
	}
	first := (*f)[0]
	*f = (*f)[1:]
	return first, true
}

func (f *FIFOQueue[T]) Size() int {
	return len(*f)
}
