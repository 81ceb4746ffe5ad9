package analyzer

import (
	"fmt"
	"net/http"

	"github.com/rohmanhakim/site-auditor/internal/store"
)

// Page404Analyzer collects broken links: every visit that ended 404,
// together with the page that linked there.
type Page404Analyzer struct {
	baseAnalyzer
}

func NewPage404Analyzer() *Page404Analyzer {
	return &Page404Analyzer{baseAnalyzer: baseAnalyzer{name: NamePage404, order: 40}}
}

func (a *Page404Analyzer) Finalize(st *store.Store) {
	var rows []map[string]any
	for _, visited := range st.Visited() {
		if visited.StatusCode != http.StatusNotFound {
			continue
		}
		row := map[string]any{
			"url":        visited.URL.String(),
			"sourceAttr": string(visited.SourceAttr),
		}
		if source, ok := st.URLOf(visited.SourceFingerprint); ok {
			row["foundOn"] = source.String()
		}
		rows = append(rows, row)
	}

	st.AppendTable(store.SuperTable{
		Code:  "pages-404",
		Title: "404 pages",
		Columns: []store.Column{
			{Key: "url", Label: "URL"},
			{Key: "foundOn", Label: "Found on"},
			{Key: "sourceAttr", Label: "Source"},
		},
		Rows:    rows,
		SortKey: "url",
		SortDir: store.SortAsc,
	})

	if len(rows) == 0 {
		st.AddSummary(store.SummaryItem{
			Code:    "pages-404",
			Message: "no broken links found",
			Status:  store.StatusOk,
		})
		return
	}
	st.AddSummary(store.SummaryItem{
		Code:    "pages-404",
		Message: fmt.Sprintf("%d URLs returned 404", len(rows)),
		Status:  store.StatusWarning,
	})
}
