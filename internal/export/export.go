package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/fileutil"
)

/*
Responsibilities
- Convert every stored 2xx HTML body into a Markdown mirror of the site
- Derive the output path from the URL path
- Conversion failures are observational; the export continues

Conversion Rules
- Headings map directly (h1-h6 to # - ######)
- Code blocks preserved verbatim
- Tables converted structurally (GFM)
- Links preserved as-is (no resolution or rewriting)
*/

type MarkdownExporter struct {
	metadataSink metadata.MetadataSink
}

func NewMarkdownExporter(metadataSink metadata.MetadataSink) MarkdownExporter {
	return MarkdownExporter{metadataSink: metadataSink}
}

// Export writes one .md file per stored HTML page under dir/export and
// returns how many pages were written.
func (e *MarkdownExporter) Export(st *store.Store, dir string) int {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	exportDir := filepath.Join(dir, "export")
	written := 0
	for _, visited := range st.Visited() {
		if visited.ContentType != resource.ContentHTML || !visited.IsSuccess() {
			continue
		}
		body, ok := st.GetBody(visited.Fingerprint)
		if !ok {
			continue
		}

		markdown, err := conv.ConvertString(string(body))
		if err != nil {
			e.recordConversionError(visited, err)
			continue
		}

		relative := exportPath(visited.URL.Path)
		target := filepath.Join(exportDir, filepath.Dir(relative))
		if writeErr := fileutil.WriteFile(target, filepath.Base(relative), []byte(markdown)); writeErr != nil {
			e.recordConversionError(visited, writeErr)
			continue
		}
		written++
	}
	return written
}

// exportPath maps a URL path onto a .md file path: "/" → index.md,
// "/docs/intro" → docs/intro.md, "/docs/" → docs/index.md.
func exportPath(urlPath string) string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return "index.md"
	}
	if strings.HasSuffix(urlPath, "/") {
		return filepath.Join(trimmed, "index.md")
	}
	if ext := filepath.Ext(trimmed); ext != "" {
		trimmed = strings.TrimSuffix(trimmed, ext)
	}
	return trimmed + ".md"
}

func (e *MarkdownExporter) recordConversionError(visited resource.VisitedURL, err error) {
	if e.metadataSink == nil {
		return
	}
	e.metadataSink.RecordError(
		time.Now(),
		"export",
		"MarkdownExporter.Export",
		metadata.CauseContentInvalid,
		fmt.Sprintf("cannot export %s: %v", visited.URL.String(), err),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, visited.URL.String()),
		},
	)
}
