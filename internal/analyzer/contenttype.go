package analyzer

import (
	"fmt"
	"sort"

	"github.com/rohmanhakim/site-auditor/internal/store"
)

// typeAggregate accumulates totals for one grouping key.
type typeAggregate struct {
	count      int
	totalSize  int64
	totalTime  int64
	statusHist map[int]int
}

func newTypeAggregate() *typeAggregate {
	return &typeAggregate{statusHist: make(map[int]int)}
}

// ContentTypeAnalyzer aggregates totals, sizes, times, and status
// histograms per classified content type.
type ContentTypeAnalyzer struct {
	baseAnalyzer
}

func NewContentTypeAnalyzer() *ContentTypeAnalyzer {
	return &ContentTypeAnalyzer{baseAnalyzer: baseAnalyzer{name: NameContentTypes, order: 110}}
}

func (a *ContentTypeAnalyzer) Finalize(st *store.Store) {
	aggregates := make(map[string]*typeAggregate)
	for _, visited := range st.Visited() {
		key := visited.ContentType.String()
		aggregate, exists := aggregates[key]
		if !exists {
			aggregate = newTypeAggregate()
			aggregates[key] = aggregate
		}
		aggregate.count++
		aggregate.totalSize += visited.Size
		aggregate.totalTime += visited.RequestTime.Milliseconds()
		aggregate.statusHist[visited.StatusCode]++
	}

	st.AppendTable(aggregateTable("content-types", "Content types", "contentType", aggregates))

	st.AddSummary(store.SummaryItem{
		Code:    NameContentTypes,
		Message: fmt.Sprintf("%d distinct content types fetched", len(aggregates)),
		Status:  store.StatusInfo,
	})
}

// aggregateTable renders grouped aggregates sorted by count.
func aggregateTable(code, title, keyColumn string, aggregates map[string]*typeAggregate) store.SuperTable {
	keys := make([]string, 0, len(aggregates))
	for key := range aggregates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		aggregate := aggregates[key]
		avgTime := int64(0)
		if aggregate.count > 0 {
			avgTime = aggregate.totalTime / int64(aggregate.count)
		}
		rows = append(rows, map[string]any{
			keyColumn:   key,
			"count":     aggregate.count,
			"totalSize": aggregate.totalSize,
			"avgTimeMs": avgTime,
			"statuses":  histogramString(aggregate.statusHist),
		})
	}

	return store.SuperTable{
		Code:  code,
		Title: title,
		Columns: []store.Column{
			{Key: keyColumn, Label: keyColumn},
			{Key: "count", Label: "Count"},
			{Key: "totalSize", Label: "Total size"},
			{Key: "avgTimeMs", Label: "Avg time (ms)"},
			{Key: "statuses", Label: "Status codes"},
		},
		Rows:    rows,
		SortKey: "count",
		SortDir: store.SortDesc,
	}
}

func histogramString(hist map[int]int) string {
	statuses := make([]int, 0, len(hist))
	for status := range hist {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)

	result := ""
	for _, status := range statuses {
		if result != "" {
			result += ", "
		}
		result += fmt.Sprintf("%d×%d", status, hist[status])
	}
	return result
}
