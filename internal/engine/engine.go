package engine

import (
	"context"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/analyzer"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/extractor"
	"github.com/rohmanhakim/site-auditor/internal/fetcher"
	"github.com/rohmanhakim/site-auditor/internal/frontier"
	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/robots"
	"github.com/rohmanhakim/site-auditor/internal/scope"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/limiter"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
	"golang.org/x/sync/errgroup"
)

/*
 Engine is the sole control-plane authority of the crawl.

 Admission guarantees:
 - The engine is the ONLY component that submits URLs to the frontier.
 - Scope decisions happen before enqueue; robots decisions happen at
   fetch time, on the worker holding the token.
 - Pipeline stages (fetcher, extractor, analyzers) may classify and
   observe, but never decide continuation or abortion; the only retry
   they make is the fetcher's re-attempt of a transient failure within
   one Fetch call.

 Per-URL ordering: fetch → extract (extras attached) → commit →
 putBody → enqueue discoveries → analyzer OnFetched → progress event.
 Across URLs there is no ordering guarantee.

 Interruption: cancelling the Run context stops dequeues immediately;
 in-flight requests get a short grace before their contexts are cut.
*/

const interruptGrace = 2 * time.Second

type Engine struct {
	cfg          config.Config
	st           *store.Store
	frontier     *frontier.Frontier
	filter       scope.Filter
	robot        robots.Robot
	htmlFetcher  fetcher.Fetcher
	domExtractor extractor.Extractor
	runner       *analyzer.Runner
	rateLimiter  limiter.RateLimiter
	metadataSink metadata.MetadataSink
	finalizer    metadata.CrawlFinalizer

	totalErrors  atomic.Int64
	totalSkipped atomic.Int64
}

// New wires the production pipeline around the given store.
func New(cfg config.Config, st *store.Store, recorder *metadata.Recorder) *Engine {
	httpFetcher := fetcher.NewHTTPFetcher(recorder, cfg)
	contentExtractor := extractor.NewContentExtractor()
	runner := analyzer.NewRunner(analyzer.Active(cfg), st, recorder)

	return &Engine{
		cfg:          cfg,
		st:           st,
		frontier:     frontier.NewFrontier(st, cfg.MaxDepth(), cfg.MaxUrls()),
		filter:       scope.NewFilter(cfg),
		robot:        robots.NewCachedRobot(recorder, nil, cfg.UserAgent()),
		htmlFetcher:  &httpFetcher,
		domExtractor: &contentExtractor,
		runner:       runner,
		rateLimiter:  limiter.NewConcurrentRateLimiter(cfg.PerHostConcurrency(), cfg.MaxReqPerSec()),
		metadataSink: recorder,
		finalizer:    recorder,
	}
}

// NewWithDeps creates an Engine with injected dependencies for testing.
func NewWithDeps(
	cfg config.Config,
	st *store.Store,
	robot robots.Robot,
	htmlFetcher fetcher.Fetcher,
	domExtractor extractor.Extractor,
	runner *analyzer.Runner,
	rateLimiter limiter.RateLimiter,
	metadataSink metadata.MetadataSink,
	finalizer metadata.CrawlFinalizer,
) *Engine {
	return &Engine{
		cfg:          cfg,
		st:           st,
		frontier:     frontier.NewFrontier(st, cfg.MaxDepth(), cfg.MaxUrls()),
		filter:       scope.NewFilter(cfg),
		robot:        robot,
		htmlFetcher:  htmlFetcher,
		domExtractor: domExtractor,
		runner:       runner,
		rateLimiter:  rateLimiter,
		metadataSink: metadataSink,
		finalizer:    finalizer,
	}
}

// Run executes the crawl to completion (or interruption) and then
// finalizes the analyzers.
func (e *Engine) Run(ctx context.Context) CrawlExecution {
	crawlStart := time.Now()

	defer func() {
		if e.finalizer != nil {
			e.finalizer.RecordFinalCrawlStats(
				e.st.CommittedCount(),
				int(e.totalErrors.Load()),
				int(e.totalSkipped.Load()),
				time.Since(crawlStart),
			)
		}
	}()

	// fetchCtx outlives ctx by the interrupt grace so in-flight
	// requests can finish after a stop
	fetchCtx, cancelFetches := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
			e.frontier.Stop()
			time.Sleep(interruptGrace)
		case <-fetchCtx.Done():
		}
		cancelFetches()
	}()

	seed := urlutil.Canonicalize(e.cfg.SeedURL())
	e.admit(resource.NewFoundURL(seed, "", resource.SourceSeed, 0))

	var group errgroup.Group
	for i := 0; i < e.cfg.Workers(); i++ {
		group.Go(func() error {
			e.workerLoop(fetchCtx)
			return nil
		})
	}
	group.Wait()
	cancelFetches()

	e.runner.Finalize()

	return CrawlExecution{
		TotalURLs:    e.st.CommittedCount(),
		TotalErrors:  int(e.totalErrors.Load()),
		TotalSkipped: int(e.totalSkipped.Load()),
		Duration:     time.Since(crawlStart),
	}
}

// ExtraColumns surfaces the analyzers' per-URL column hints for the
// report's URL listing.
func (e *Engine) ExtraColumns() []store.Column {
	return e.runner.ExtraColumns()
}

func (e *Engine) workerLoop(ctx context.Context) {
	for {
		token, ok := e.frontier.Dequeue()
		if !ok {
			return
		}
		e.process(ctx, token)
		e.frontier.Done()
	}
}

func (e *Engine) process(ctx context.Context, token frontier.CrawlToken) {
	found := token.Found()

	// robots is consulted at fetch time, for internal URLs only
	if e.cfg.RespectRobots() && found.Kind == resource.KindInternal && !token.FetchOnly() {
		decision := e.robot.Decide(ctx, found.URL)
		if decision.FetchFailed {
			e.st.AddSummary(store.SummaryItem{
				Code:    "robots",
				Message: "robots.txt could not be fetched for " + urlutil.Origin(found.URL) + "; crawling everything",
				Status:  store.StatusNotice,
			})
		}
		for _, sitemap := range decision.Sitemaps {
			if sitemapURL, err := url.Parse(sitemap); err == nil {
				e.admit(resource.NewFoundURL(*sitemapURL, token.Fingerprint(), resource.SourceSitemap, found.Depth+1))
			}
		}
		if !decision.Allowed {
			e.recordSkip(found, resource.SkipRobotsTxt)
			e.st.Commit(skippedVisited(token))
			return
		}
	}

	hostPort := urlutil.HostPort(found.URL)
	if err := e.rateLimiter.Acquire(ctx, hostPort); err != nil {
		// stopping: close out the reservation without a fetch
		e.st.Commit(skippedVisited(token))
		return
	}
	result := e.htmlFetcher.Fetch(ctx, fetcher.NewFetchParam(
		found,
		found.Kind == resource.KindInternal,
		!token.FetchOnly(),
	))
	e.rateLimiter.Release(hostPort)

	visited := result.Visited()
	if visited.IsFailure() {
		e.totalErrors.Add(1)
	}

	// extraction attaches extras before the record is committed; the
	// committed VisitedURL is immutable afterward
	var extraction extractor.ExtractionResult
	storable := visited.IsSuccess() || visited.IsRedirect()
	if storable {
		extraction = e.domExtractor.Extract(visited, result.Body(), result.Headers())
		visited.Extras = extraction.Extras
		if extraction.ParseNotice != "" {
			e.st.AddSummary(store.SummaryItem{
				Code:    "parse",
				Message: extraction.ParseNotice,
				Status:  store.StatusNotice,
			})
		}
	}

	e.st.Commit(visited)
	if storable && len(result.Body()) > 0 {
		e.st.PutBody(visited.Fingerprint, result.Body())
	}

	// discoveries feed back through scope filtering, then the frontier.
	// fetch-only resources are terminal except for their redirects.
	// OTHER-tagged discoveries (form actions, social-preview images)
	// are recorded for reporting only and never become candidates.
	for _, discovered := range extraction.Found {
		if discovered.SourceAttr == resource.SourceOther {
			continue
		}
		if token.FetchOnly() && discovered.SourceAttr != resource.SourceRedirectLocation {
			continue
		}
		e.admit(discovered)
	}

	e.runner.OnFetched(visited, result.Body(), extraction.Doc, result.Headers())

	if e.metadataSink != nil {
		e.metadataSink.RecordFetched(metadata.FetchedEvent{
			Fingerprint:   visited.Fingerprint,
			Status:        visited.StatusCode,
			Bytes:         visited.Size,
			Elapsed:       visited.RequestTime,
			Attempts:      result.Attempts(),
			InFlight:      e.frontier.InFlightCount(),
			ReservedTotal: e.st.ReservedCount(),
		})
	}
}

// admit runs one candidate through the scope filter and, when allowed,
// the frontier. Rejections land in the skip log.
func (e *Engine) admit(found resource.FoundURL) {
	decision := e.filter.Decide(found.URL)
	found.Kind = decision.Kind

	switch decision.Verdict {
	case scope.VerdictSkip:
		e.recordSkip(found, decision.Reason)
	case scope.VerdictFetchOnly:
		e.enqueue(found, true)
	default:
		e.enqueue(found, false)
	}
}

func (e *Engine) enqueue(found resource.FoundURL, fetchOnly bool) {
	result := e.frontier.Enqueue(found, fetchOnly)
	if result.Outcome == frontier.OutcomeSkipped {
		e.recordSkip(found, result.Reason)
	}
}

func (e *Engine) recordSkip(found resource.FoundURL, reason resource.SkipReason) {
	e.totalSkipped.Add(1)
	e.st.RecordSkip(resource.SkippedURL{
		URL:               found.URL,
		Reason:            reason,
		SourceFingerprint: found.SourceFingerprint,
		SourceAttr:        found.SourceAttr,
	})
	if e.metadataSink != nil {
		e.metadataSink.RecordSkipped(metadata.SkippedEvent{
			URL:    found.URL.String(),
			Reason: string(reason),
		})
	}
}

// skippedVisited closes out a reserved fingerprint that will never be
// fetched (robots denial, shutdown).
func skippedVisited(token frontier.CrawlToken) resource.VisitedURL {
	found := token.Found()
	return resource.VisitedURL{
		Fingerprint:       token.Fingerprint(),
		URL:               urlutil.Canonicalize(found.URL),
		SourceFingerprint: found.SourceFingerprint,
		SourceAttr:        found.SourceAttr,
		StatusCode:        resource.StatusSkipped,
		IsExternal:        found.Kind != resource.KindInternal,
		Depth:             found.Depth,
	}
}
