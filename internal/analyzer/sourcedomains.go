package analyzer

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/internal/store"
)

// SourceDomainsAnalyzer aggregates the same totals as the content-type
// analyzer, grouped by the host serving each resource.
type SourceDomainsAnalyzer struct {
	baseAnalyzer
}

func NewSourceDomainsAnalyzer() *SourceDomainsAnalyzer {
	return &SourceDomainsAnalyzer{baseAnalyzer: baseAnalyzer{name: NameSourceDomains, order: 120}}
}

func (a *SourceDomainsAnalyzer) Finalize(st *store.Store) {
	aggregates := make(map[string]*typeAggregate)
	externals := 0
	for _, visited := range st.Visited() {
		key := visited.URL.Hostname()
		aggregate, exists := aggregates[key]
		if !exists {
			aggregate = newTypeAggregate()
			aggregates[key] = aggregate
		}
		aggregate.count++
		aggregate.totalSize += visited.Size
		aggregate.totalTime += visited.RequestTime.Milliseconds()
		aggregate.statusHist[visited.StatusCode]++
		if visited.IsExternal {
			externals++
		}
	}

	st.AppendTable(aggregateTable("source-domains", "Source domains", "host", aggregates))

	st.AddSummary(store.SummaryItem{
		Code:    NameSourceDomains,
		Message: fmt.Sprintf("resources served by %d hosts (%d external fetches)", len(aggregates), externals),
		Status:  store.StatusInfo,
	})
}
