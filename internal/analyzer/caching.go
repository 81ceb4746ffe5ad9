package analyzer

import (
	"fmt"
	"sort"

	"github.com/rohmanhakim/site-auditor/internal/store"
)

// CachingAnalyzer cross-tabulates cache behavior over content types
// and hosts, and aggregates cache lifetimes.
type CachingAnalyzer struct {
	baseAnalyzer
}

func NewCachingAnalyzer() *CachingAnalyzer {
	return &CachingAnalyzer{baseAnalyzer: baseAnalyzer{name: NameCaching, order: 20}}
}

func (a *CachingAnalyzer) Finalize(st *store.Store) {
	byTypeAndLabel := make(map[string]int)
	byHostAndLabel := make(map[string]int)
	byHostTypeLabel := make(map[string]int)

	var lifetimes []int64
	for _, visited := range st.Visited() {
		if !visited.IsSuccess() {
			continue
		}
		label := visited.CacheFlags.Label()
		byTypeAndLabel[visited.ContentType.String()+"\x00"+label]++
		byHostAndLabel[visited.URL.Host+"\x00"+label]++
		byHostTypeLabel[visited.URL.Host+"\x00"+visited.ContentType.String()+"\x00"+label]++

		if visited.CacheLifetime != nil {
			lifetimes = append(lifetimes, *visited.CacheLifetime)
		}
	}

	st.AppendTable(crossTable("caching-by-type", "Caching by content type",
		[]string{"contentType", "cacheType"}, byTypeAndLabel))
	st.AppendTable(crossTable("caching-by-host", "Caching by host",
		[]string{"host", "cacheType"}, byHostAndLabel))
	st.AppendTable(crossTable("caching-by-host-type", "Caching by host and content type",
		[]string{"host", "contentType", "cacheType"}, byHostTypeLabel))

	if len(lifetimes) == 0 {
		st.AddSummary(store.SummaryItem{
			Code:    "caching",
			Message: "no response declared a cache lifetime",
			Status:  store.StatusNotice,
		})
		return
	}

	var sum, min, max int64
	min = lifetimes[0]
	max = lifetimes[0]
	for _, lifetime := range lifetimes {
		sum += lifetime
		if lifetime < min {
			min = lifetime
		}
		if lifetime > max {
			max = lifetime
		}
	}
	st.AddSummary(store.SummaryItem{
		Code: "caching",
		Message: fmt.Sprintf("cache lifetimes: avg %ds, min %ds, max %ds over %d responses",
			sum/int64(len(lifetimes)), min, max, len(lifetimes)),
		Status: store.StatusOk,
	})
}

// crossTable renders a "\x00"-joined composite key counter as a
// SuperTable with one column per key part plus a count.
func crossTable(code, title string, keyColumns []string, counts map[string]int) store.SuperTable {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		row := map[string]any{"count": counts[key]}
		parts := splitComposite(key, len(keyColumns))
		for i, column := range keyColumns {
			row[column] = parts[i]
		}
		rows = append(rows, row)
	}

	columns := make([]store.Column, 0, len(keyColumns)+1)
	for _, column := range keyColumns {
		columns = append(columns, store.Column{Key: column, Label: column})
	}
	columns = append(columns, store.Column{Key: "count", Label: "Count"})

	return store.SuperTable{
		Code:    code,
		Title:   title,
		Columns: columns,
		Rows:    rows,
		SortKey: "count",
		SortDir: store.SortDesc,
	}
}

func splitComposite(key string, parts int) []string {
	split := make([]string, 0, parts)
	start := 0
	for i := 0; i < len(key) && len(split) < parts-1; i++ {
		if key[i] == '\x00' {
			split = append(split, key[start:i])
			start = i + 1
		}
	}
	split = append(split, key[start:])
	return split
}
