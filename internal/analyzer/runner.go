package analyzer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// Runner drives the active analyzers behind a fault boundary: a panic
// in any hook is converted to a critical summary item keyed by the
// analyzer name, and everything else keeps running.
type Runner struct {
	analyzers    []Analyzer
	st           *store.Store
	metadataSink metadata.MetadataSink
	stats        map[string]*Stats
}

func NewRunner(analyzers []Analyzer, st *store.Store, metadataSink metadata.MetadataSink) *Runner {
	stats := make(map[string]*Stats, len(analyzers))
	for _, instance := range analyzers {
		stats[instance.Name()] = NewStats()
	}
	return &Runner{
		analyzers:    analyzers,
		st:           st,
		metadataSink: metadataSink,
		stats:        stats,
	}
}

func (r *Runner) Analyzers() []Analyzer {
	return r.analyzers
}

// StatsOf exposes one analyzer's unique-subject counters.
func (r *Runner) StatsOf(name string) *Stats {
	return r.stats[name]
}

// ExtraColumns collects the per-URL column hints of analyzers that
// offer one, in finalize order.
func (r *Runner) ExtraColumns() []store.Column {
	var columns []store.Column
	for _, instance := range r.analyzers {
		if hinter, ok := instance.(ColumnHinter); ok {
			columns = append(columns, hinter.ExtraColumn())
		}
	}
	return columns
}

// OnFetched feeds one fetched resource to every analyzer, on the
// calling worker.
func (r *Runner) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) {
	for _, instance := range r.analyzers {
		r.runHook(instance.Name(), "OnFetched", func() {
			analysis := instance.OnFetched(visited, body, doc, headers)
			if analysis == nil || analysis.IsEmpty() {
				return
			}
			r.st.PutAnalysis(visited.Fingerprint, instance.Name(), analysis)
			r.stats[instance.Name()].CountAnalysis(analysis)
		})
	}
}

// Finalize runs every analyzer's finalize hook in the order the
// analyzers were given (Active sorts them by Order) and records
// per-analyzer timing events.
func (r *Runner) Finalize() {
	for _, instance := range r.analyzers {
		startTime := time.Now()
		r.runHook(instance.Name(), "Finalize", func() {
			instance.Finalize(r.st)
		})
		if r.metadataSink != nil {
			r.metadataSink.RecordFinalize(metadata.FinalizeEvent{
				Analyzer: instance.Name(),
				Elapsed:  time.Since(startTime),
			})
		}
	}
}

// runHook is the fault boundary around one analyzer call.
func (r *Runner) runHook(name, hook string, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.st.AddSummary(store.SummaryItem{
				Code:    name,
				Message: fmt.Sprintf("analyzer %s failed in %s: %v", name, hook, recovered),
				Status:  store.StatusCritical,
			})
			if r.metadataSink != nil {
				r.metadataSink.RecordError(
					time.Now(),
					"analyzer",
					name+"."+hook,
					metadata.CauseAnalyzerFailure,
					fmt.Sprintf("%v", recovered),
					[]metadata.Attribute{
						metadata.NewAttr(metadata.AttrAnalyzer, name),
					},
				)
			}
		}
	}()
	fn()
}
