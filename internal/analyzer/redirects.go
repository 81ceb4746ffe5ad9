package analyzer

import (
	"fmt"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// RedirectsAnalyzer tabulates every 301-308 with its target.
type RedirectsAnalyzer struct {
	baseAnalyzer
}

func NewRedirectsAnalyzer() *RedirectsAnalyzer {
	return &RedirectsAnalyzer{baseAnalyzer: baseAnalyzer{name: NameRedirects, order: 30}}
}

func (a *RedirectsAnalyzer) Finalize(st *store.Store) {
	var rows []map[string]any
	for _, visited := range st.Visited() {
		if visited.StatusCode < 301 || visited.StatusCode > 308 {
			continue
		}
		rows = append(rows, map[string]any{
			"url":    visited.URL.String(),
			"status": visited.StatusCode,
			"target": visited.Extras[resource.ExtraLocation],
		})
	}

	st.AppendTable(store.SuperTable{
		Code:  "redirects",
		Title: "Redirects",
		Columns: []store.Column{
			{Key: "url", Label: "URL"},
			{Key: "status", Label: "Status"},
			{Key: "target", Label: "Target"},
		},
		Rows:    rows,
		SortKey: "url",
		SortDir: store.SortAsc,
	})

	status := store.StatusOk
	if len(rows) > 0 {
		status = store.StatusNotice
	}
	st.AddSummary(store.SummaryItem{
		Code:    "redirects",
		Message: fmt.Sprintf("%d redirecting URLs", len(rows)),
		Status:  status,
	})
}
