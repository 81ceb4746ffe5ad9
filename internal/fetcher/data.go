package fetcher

import (
	"net/http"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

// FetchParam is the per-request input contract.
type FetchParam struct {
	found resource.FoundURL
	// internal origins get 5xx retries; external ones do not
	isInternal bool
	allowCrawl bool
}

func NewFetchParam(found resource.FoundURL, isInternal, allowCrawl bool) FetchParam {
	return FetchParam{
		found:      found,
		isInternal: isInternal,
		allowCrawl: allowCrawl,
	}
}

func (p *FetchParam) Found() resource.FoundURL {
	return p.found
}

// FetchResult is the per-request output contract: the VisitedURL
// record (always present, whatever the outcome), the decoded body for
// storable responses, and the raw response headers for analyzers.
type FetchResult struct {
	visited  resource.VisitedURL
	body     []byte
	headers  http.Header
	attempts int
}

func (r *FetchResult) Visited() resource.VisitedURL {
	return r.visited
}

func (r *FetchResult) Body() []byte {
	return r.body
}

func (r *FetchResult) Headers() http.Header {
	return r.headers
}

func (r *FetchResult) Attempts() int {
	return r.attempts
}
