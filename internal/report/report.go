package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/failure"
	"github.com/rohmanhakim/site-auditor/pkg/fileutil"
)

/*
Responsibilities
- Render the finished Result Store into report artifacts
- audit.json: machine-readable summary, tables, and per-URL rows
- audit.md: human-readable summary + URL listing + SuperTables
- audit.html: the Markdown report rendered through gomarkdown

Analyzers may hint extra per-URL columns (Runner.ExtraColumns); the
reporter appends them to the URL listing in both formats.

The reporter is strictly read-only over the store.
*/

type Reporter struct {
	st           *store.Store
	runID        string
	extraColumns []store.Column
}

func NewReporter(st *store.Store, runID string, extraColumns ...store.Column) Reporter {
	return Reporter{st: st, runID: runID, extraColumns: extraColumns}
}

// Write produces all three artifacts under dir.
func (r *Reporter) Write(dir string) failure.ClassifiedError {
	jsonBytes, err := r.renderJSON()
	if err != nil {
		return &fileutil.FileError{
			Message:   fmt.Sprintf("render json: %v", err),
			Retryable: false,
			Cause:     fileutil.ErrCauseWriteError,
		}
	}
	if writeErr := fileutil.WriteFile(dir, "audit.json", jsonBytes); writeErr != nil {
		return writeErr
	}

	markdownText := r.renderMarkdown()
	if writeErr := fileutil.WriteFile(dir, "audit.md", []byte(markdownText)); writeErr != nil {
		return writeErr
	}

	return fileutil.WriteFile(dir, "audit.html", renderHTML(markdownText))
}

type jsonReport struct {
	RunID        string            `json:"runId"`
	Summary      []jsonSummaryItem `json:"summary"`
	Tables       []jsonTable       `json:"tables"`
	URLs         []jsonURL         `json:"urls"`
	ExtraColumns []string          `json:"extraColumns,omitempty"`
	Counts       map[string]int    `json:"summaryCounts"`
}

type jsonSummaryItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type jsonTable struct {
	Code    string           `json:"code"`
	Title   string           `json:"title"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type jsonURL struct {
	Fingerprint string         `json:"fingerprint"`
	URL         string         `json:"url"`
	Status      int            `json:"status"`
	ContentType string         `json:"contentType"`
	Size        int64          `json:"size"`
	External    bool           `json:"external"`
	Depth       int            `json:"depth"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// urlColumnValue resolves one hinted column key against a visited
// record. Unknown keys render empty rather than failing the report.
func urlColumnValue(visited resource.VisitedURL, key string) any {
	switch key {
	case "elapsedMs":
		return visited.RequestTime.Milliseconds()
	case "size":
		return visited.Size
	case "depth":
		return visited.Depth
	case "external":
		return visited.IsExternal
	case "cacheLifetime":
		if visited.CacheLifetime == nil {
			return ""
		}
		return *visited.CacheLifetime
	case "cacheType":
		return visited.CacheFlags.Label()
	default:
		return ""
	}
}

func (r *Reporter) renderJSON() ([]byte, error) {
	report := jsonReport{
		RunID:  r.runID,
		Counts: make(map[string]int),
	}

	for status, count := range r.st.SummaryCounts() {
		report.Counts[string(status)] = count
	}
	for _, item := range r.st.Summary() {
		report.Summary = append(report.Summary, jsonSummaryItem{
			Code:    item.Code,
			Message: item.Message,
			Status:  string(item.Status),
		})
	}
	for _, table := range r.st.Tables() {
		jt := jsonTable{Code: table.Code, Title: table.Title, Rows: table.Rows}
		for _, column := range table.Columns {
			jt.Columns = append(jt.Columns, column.Key)
		}
		report.Tables = append(report.Tables, jt)
	}
	for _, column := range r.extraColumns {
		report.ExtraColumns = append(report.ExtraColumns, column.Key)
	}
	for _, visited := range r.st.Visited() {
		row := jsonURL{
			Fingerprint: visited.Fingerprint,
			URL:         visited.URL.String(),
			Status:      visited.StatusCode,
			ContentType: visited.ContentType.String(),
			Size:        visited.Size,
			External:    visited.IsExternal,
			Depth:       visited.Depth,
		}
		for _, column := range r.extraColumns {
			if row.Extra == nil {
				row.Extra = make(map[string]any, len(r.extraColumns))
			}
			row.Extra[column.Key] = urlColumnValue(visited, column.Key)
		}
		report.URLs = append(report.URLs, row)
	}

	return json.MarshalIndent(report, "", "  ")
}

func (r *Reporter) renderMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Site audit\n\nRun `%s`, %d URLs visited.\n\n", r.runID, len(r.st.Visited()))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Code | Message |\n|---|---|---|\n")
	for _, item := range r.st.Summary() {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", item.Status, item.Code, escapeCell(item.Message))
	}
	b.WriteString("\n")

	r.writeURLListing(&b)

	for _, table := range r.st.Tables() {
		if len(table.Rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", table.Title)

		headers := make([]string, 0, len(table.Columns))
		separators := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			headers = append(headers, column.Label)
			separators = append(separators, "---")
		}
		fmt.Fprintf(&b, "| %s |\n| %s |\n", strings.Join(headers, " | "), strings.Join(separators, " | "))

		for _, row := range table.Rows {
			cells := make([]string, 0, len(table.Columns))
			for _, column := range table.Columns {
				cells = append(cells, escapeCell(fmt.Sprintf("%v", row[column.Key])))
			}
			fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// writeURLListing renders the per-URL table: the fixed columns plus
// any analyzer-hinted extras.
func (r *Reporter) writeURLListing(b *strings.Builder) {
	visited := r.st.Visited()
	if len(visited) == 0 {
		return
	}

	b.WriteString("## Visited URLs\n\n")

	headers := []string{"URL", "Status", "Type", "Size"}
	for _, column := range r.extraColumns {
		headers = append(headers, column.Label)
	}
	separators := make([]string, len(headers))
	for i := range separators {
		separators[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n| %s |\n", strings.Join(headers, " | "), strings.Join(separators, " | "))

	for _, v := range visited {
		cells := []string{
			escapeCell(v.URL.String()),
			fmt.Sprintf("%d", v.StatusCode),
			v.ContentType.String(),
			fmt.Sprintf("%d", v.Size),
		}
		for _, column := range r.extraColumns {
			cells = append(cells, escapeCell(fmt.Sprintf("%v", urlColumnValue(v, column.Key))))
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
	b.WriteString("\n")
}

func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}

func renderHTML(markdownText string) []byte {
	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := mdParser.Parse([]byte(markdownText))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage,
	})
	return markdown.Render(doc, renderer)
}
