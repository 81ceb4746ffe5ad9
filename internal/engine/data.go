package engine

import "time"

// CrawlExecution is the terminal summary Run returns.
type CrawlExecution struct {
	TotalURLs    int
	TotalErrors  int
	TotalSkipped int
	Duration     time.Duration
}
