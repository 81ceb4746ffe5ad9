package fetcher

import "context"

// Fetcher executes one request. It never returns an error: every
// outcome, network failure included, is a VisitedURL carrying a real
// HTTP status or a negative sentinel.
type Fetcher interface {
	Fetch(ctx context.Context, fetchParam FetchParam) FetchResult
}
