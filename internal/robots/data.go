package robots

import "time"

/*
Responsibilities

- Fetch robots.txt once per origin (scheme+host+port)
- Cache the parsed policy for the crawl duration
- Answer allow/deny for a path before the URL is fetched

A fetch failure degrades to allow-all; the caller surfaces the notice.
*/

// Decision is the answer for one URL.
type Decision struct {
	Allowed    bool
	CrawlDelay time.Duration
	// Sitemaps advertised by the origin's robots.txt, non-empty only
	// on the first decision for that origin.
	Sitemaps []string
	// FetchFailed marks an allow-all fallback after a robots.txt
	// fetch error, once per origin.
	FetchFailed bool
}
