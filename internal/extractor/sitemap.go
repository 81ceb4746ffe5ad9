package extractor

import (
	"bytes"
	"encoding/xml"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

// Covers both sitemap.xml (<urlset>) and sitemapindex.xml
// (<sitemapindex>): every <loc> is a candidate either way.
type sitemapDocument struct {
	URLs     []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

func (e *ContentExtractor) extractSitemap(result *ExtractionResult, visited resource.VisitedURL, body []byte, depth int) {
	var doc sitemapDocument
	if err := xml.Unmarshal(bytes.TrimSpace(body), &doc); err != nil {
		result.ParseNotice = "sitemap parse failed: " + err.Error()
		return
	}

	entries := append(doc.URLs, doc.Sitemaps...)
	for _, entry := range entries {
		if resolved, ok := resolveRef(visited.URL, entry.Loc); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceSitemap, depth))
		}
	}
}
