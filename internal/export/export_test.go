package export_test

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/site-auditor/internal/export"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWithPage(t *testing.T, raw, body string, contentType resource.ContentType) *store.Store {
	t.Helper()
	st, err := store.New(1<<20, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	u, _ := url.Parse(raw)
	fp, _ := st.Reserve(*u, "", resource.SourceSeed)
	st.Commit(resource.VisitedURL{
		Fingerprint: fp,
		URL:         *u,
		StatusCode:  200,
		ContentType: contentType,
	})
	st.PutBody(fp, []byte(body))
	return st
}

func TestExport_WritesMarkdownMirror(t *testing.T) {
	st := storeWithPage(t,
		"https://ex.com/docs/intro",
		`<html><body><h1>Intro</h1><p>Welcome to the <strong>docs</strong>.</p></body></html>`,
		resource.ContentHTML,
	)

	dir := t.TempDir()
	exporter := export.NewMarkdownExporter(nil)
	written := exporter.Export(st, dir)

	assert.Equal(t, 1, written)
	content, err := os.ReadFile(filepath.Join(dir, "export", "docs", "intro.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Intro")
	assert.Contains(t, string(content), "**docs**")
}

func TestExport_RootBecomesIndex(t *testing.T) {
	st := storeWithPage(t, "https://ex.com/", `<html><body><h1>Home</h1></body></html>`, resource.ContentHTML)

	dir := t.TempDir()
	exporter := export.NewMarkdownExporter(nil)
	require.Equal(t, 1, exporter.Export(st, dir))

	_, err := os.Stat(filepath.Join(dir, "export", "index.md"))
	assert.NoError(t, err)
}

func TestExport_SkipsNonHTML(t *testing.T) {
	st := storeWithPage(t, "https://ex.com/app.css", "body{}", resource.ContentStylesheet)

	dir := t.TempDir()
	exporter := export.NewMarkdownExporter(nil)
	assert.Equal(t, 0, exporter.Export(st, dir))
}
