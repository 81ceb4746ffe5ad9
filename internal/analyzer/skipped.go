package analyzer

import (
	"fmt"
	"sort"

	"github.com/rohmanhakim/site-auditor/internal/store"
)

// SkippedUrlsAnalyzer summarizes the skipped-URL log by domain and
// reason.
type SkippedUrlsAnalyzer struct {
	baseAnalyzer
}

func NewSkippedUrlsAnalyzer() *SkippedUrlsAnalyzer {
	return &SkippedUrlsAnalyzer{baseAnalyzer: baseAnalyzer{name: NameSkippedUrls, order: 100}}
}

func (a *SkippedUrlsAnalyzer) Finalize(st *store.Store) {
	type key struct {
		domain string
		reason string
	}
	counts := make(map[key]int)
	for _, skipped := range st.Skipped() {
		counts[key{domain: skipped.URL.Hostname(), reason: string(skipped.Reason)}]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].domain != keys[j].domain {
			return keys[i].domain < keys[j].domain
		}
		return keys[i].reason < keys[j].reason
	})

	rows := make([]map[string]any, 0, len(keys))
	total := 0
	for _, k := range keys {
		rows = append(rows, map[string]any{
			"domain": k.domain,
			"reason": k.reason,
			"count":  counts[k],
		})
		total += counts[k]
	}

	st.AppendTable(store.SuperTable{
		Code:  "skipped-urls",
		Title: "Skipped URLs",
		Columns: []store.Column{
			{Key: "domain", Label: "Domain"},
			{Key: "reason", Label: "Reason"},
			{Key: "count", Label: "Count"},
		},
		Rows:    rows,
		SortKey: "count",
		SortDir: store.SortDesc,
	})

	st.AddSummary(store.SummaryItem{
		Code:    NameSkippedUrls,
		Message: fmt.Sprintf("%d URLs skipped across %d (domain, reason) groups", total, len(rows)),
		Status:  store.StatusInfo,
	})
}
