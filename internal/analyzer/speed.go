package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

const speedTopK = 10

// request-time grades for the summary
const (
	speedGoodThreshold = 500 * time.Millisecond
	speedSlowThreshold = 2 * time.Second
)

// SpeedAnalyzer ranks HTML pages by request time, fastest and slowest.
type SpeedAnalyzer struct {
	baseAnalyzer
}

func NewSpeedAnalyzer() *SpeedAnalyzer {
	return &SpeedAnalyzer{baseAnalyzer: baseAnalyzer{name: NameSpeed, order: 50}}
}

// ExtraColumn contributes the request time to URL listings.
func (a *SpeedAnalyzer) ExtraColumn() store.Column {
	return store.Column{Key: "elapsedMs", Label: "Time (ms)"}
}

func (a *SpeedAnalyzer) Finalize(st *store.Store) {
	var pages []resource.VisitedURL
	for _, visited := range st.Visited() {
		if visited.ContentType == resource.ContentHTML && visited.IsSuccess() {
			pages = append(pages, visited)
		}
	}
	if len(pages) == 0 {
		return
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].RequestTime < pages[j].RequestTime
	})

	st.AppendTable(speedTable("fastest-pages", "Fastest pages", pages[:topK(len(pages))], store.SortAsc))

	slowest := make([]resource.VisitedURL, 0, topK(len(pages)))
	for i := len(pages) - 1; i >= 0 && len(slowest) < speedTopK; i-- {
		slowest = append(slowest, pages[i])
	}
	st.AppendTable(speedTable("slowest-pages", "Slowest pages", slowest, store.SortDesc))

	var slowCount int
	for _, page := range pages {
		if page.RequestTime > speedSlowThreshold {
			slowCount++
		}
	}

	switch {
	case slowCount > 0:
		st.AddSummary(store.SummaryItem{
			Code:    "speed",
			Message: fmt.Sprintf("%d of %d HTML pages took longer than %v", slowCount, len(pages), speedSlowThreshold),
			Status:  store.StatusWarning,
		})
	case pages[len(pages)-1].RequestTime > speedGoodThreshold:
		st.AddSummary(store.SummaryItem{
			Code:    "speed",
			Message: fmt.Sprintf("slowest HTML page took %v", pages[len(pages)-1].RequestTime.Round(time.Millisecond)),
			Status:  store.StatusNotice,
		})
	default:
		st.AddSummary(store.SummaryItem{
			Code:    "speed",
			Message: fmt.Sprintf("all %d HTML pages responded within %v", len(pages), speedGoodThreshold),
			Status:  store.StatusOk,
		})
	}
}

func topK(n int) int {
	if n < speedTopK {
		return n
	}
	return speedTopK
}

func speedTable(code, title string, pages []resource.VisitedURL, dir store.SortDirection) store.SuperTable {
	rows := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		rows = append(rows, map[string]any{
			"url":       page.URL.String(),
			"elapsedMs": page.RequestTime.Milliseconds(),
			"size":      page.Size,
		})
	}
	return store.SuperTable{
		Code:  code,
		Title: title,
		Columns: []store.Column{
			{Key: "url", Label: "URL"},
			{Key: "elapsedMs", Label: "Time (ms)"},
			{Key: "size", Label: "Size"},
		},
		Rows:    rows,
		SortKey: "elapsedMs",
		SortDir: dir,
	}
}
