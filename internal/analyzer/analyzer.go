package analyzer

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

/*
Analyzer Framework

Analyzers receive every fetched resource through OnFetched (on the
worker that fetched it, after extraction, so the parsed DOM is
available) and run Finalize once after the frontier drains, in Order()
order.

Rules:
- Analyzers communicate only through the Result Store and their own
  per-instance fields.
- Analyzers never mutate VisitedURLs.
- A panic in OnFetched or Finalize becomes a critical summary item
  keyed by the analyzer name; the crawl and the other analyzers
  continue.
*/

// Analyzer is the plug-in contract.
type Analyzer interface {
	// Name identifies the analyzer in summaries, stats, and the
	// registry filter.
	Name() string
	// Order positions Finalize relative to other analyzers, ascending.
	Order() int
	// ShouldBeActivated gates registration against the configuration.
	ShouldBeActivated(cfg config.Config) bool
	// Configure hands the analyzer the options it documents reading.
	Configure(cfg config.Config)
	// OnFetched observes one fetched resource. body and doc may be
	// nil (non-2xx outcomes, non-HTML content). The returned analysis
	// is recorded in the store under the analyzer's name; nil means
	// nothing to record.
	OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis
	// Finalize reads the completed crawl and emits SuperTables and
	// summary items.
	Finalize(st *store.Store)
}

// ColumnHinter is implemented by analyzers that contribute an extra
// per-URL column to URL listings.
type ColumnHinter interface {
	ExtraColumn() store.Column
}
