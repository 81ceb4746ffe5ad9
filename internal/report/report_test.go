package report_test

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/report"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(1<<20, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	u, _ := url.Parse("https://ex.com/")
	fp, _ := st.Reserve(*u, "", resource.SourceSeed)
	st.Commit(resource.VisitedURL{
		Fingerprint: fp,
		URL:         *u,
		StatusCode:  200,
		ContentType: resource.ContentHTML,
		Size:        1234,
		RequestTime: 42 * time.Millisecond,
	})

	st.AddSummary(store.SummaryItem{Code: "dns-ipv4", Message: "resolved", Status: store.StatusOk})
	st.AddSummary(store.SummaryItem{Code: "security", Message: "no CSP | anywhere", Status: store.StatusWarning})
	st.AppendTable(store.SuperTable{
		Code:    "redirects",
		Title:   "Redirects",
		Columns: []store.Column{{Key: "url", Label: "URL"}, {Key: "target", Label: "Target"}},
		Rows:    []map[string]any{{"url": "https://ex.com/a", "target": "/b"}},
	})
	return st
}

func TestWrite_ProducesAllArtifacts(t *testing.T) {
	st := seededStore(t)
	dir := t.TempDir()

	reporter := report.NewReporter(st, "run-123")
	require.NoError(t, reporter.Write(dir))

	for _, name := range []string{"audit.json", "audit.md", "audit.html"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestWrite_JSONShape(t *testing.T) {
	st := seededStore(t)
	dir := t.TempDir()
	reporter := report.NewReporter(st, "run-123")
	require.NoError(t, reporter.Write(dir))

	raw, err := os.ReadFile(filepath.Join(dir, "audit.json"))
	require.NoError(t, err)

	var decoded struct {
		RunID   string `json:"runId"`
		Summary []struct {
			Code   string `json:"code"`
			Status string `json:"status"`
		} `json:"summary"`
		Tables []struct {
			Code string           `json:"code"`
			Rows []map[string]any `json:"rows"`
		} `json:"tables"`
		URLs []struct {
			URL    string `json:"url"`
			Status int    `json:"status"`
		} `json:"urls"`
		Counts map[string]int `json:"summaryCounts"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "run-123", decoded.RunID)
	require.Len(t, decoded.Summary, 2)
	assert.Equal(t, "dns-ipv4", decoded.Summary[0].Code)
	require.Len(t, decoded.Tables, 1)
	assert.Equal(t, "redirects", decoded.Tables[0].Code)
	require.Len(t, decoded.URLs, 1)
	assert.Equal(t, "https://ex.com/", decoded.URLs[0].URL)
	assert.Equal(t, 1, decoded.Counts["ok"])
	assert.Equal(t, 1, decoded.Counts["warning"])
}

func TestWrite_ExtraColumnsReachListingAndJSON(t *testing.T) {
	st := seededStore(t)
	dir := t.TempDir()

	reporter := report.NewReporter(st, "run-123", store.Column{Key: "elapsedMs", Label: "Time (ms)"})
	require.NoError(t, reporter.Write(dir))

	md, err := os.ReadFile(filepath.Join(dir, "audit.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Visited URLs")
	assert.Contains(t, string(md), "Time (ms)")
	assert.Contains(t, string(md), "| https://ex.com/ | 200 | html | 1234 | 42 |")

	raw, err := os.ReadFile(filepath.Join(dir, "audit.json"))
	require.NoError(t, err)
	var decoded struct {
		ExtraColumns []string `json:"extraColumns"`
		URLs         []struct {
			Extra map[string]any `json:"extra"`
		} `json:"urls"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"elapsedMs"}, decoded.ExtraColumns)
	require.Len(t, decoded.URLs, 1)
	assert.Equal(t, float64(42), decoded.URLs[0].Extra["elapsedMs"])
}

func TestWrite_MarkdownEscapesTableCells(t *testing.T) {
	st := seededStore(t)
	dir := t.TempDir()
	reporter := report.NewReporter(st, "run-123")
	require.NoError(t, reporter.Write(dir))

	md, err := os.ReadFile(filepath.Join(dir, "audit.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), `no CSP \| anywhere`)
	assert.Contains(t, string(md), "## Redirects")

	html, err := os.ReadFile(filepath.Join(dir, "audit.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<table>")
	assert.Contains(t, string(html), "Site audit")
}
