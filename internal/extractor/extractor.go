package extractor

import (
	"net/http"
	"strings"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
)

/*
Responsibilities
- Discover further URLs in fetched content
- Record the source attribute of every discovery
- Populate the VisitedURL extras (Title, Description, H1, Location)

Extraction is dispatched on the classified content type. Every
discovered reference is resolved against the visited URL (or the
document's <base href>), and carries the visiting URL's fingerprint as
its source.

The extractor never decides scope, depth, or admission; it only reports
what the content references.
*/

type Extractor interface {
	Extract(visited resource.VisitedURL, body []byte, headers http.Header) ExtractionResult
}

type ContentExtractor struct{}

func NewContentExtractor() ContentExtractor {
	return ContentExtractor{}
}

func (e *ContentExtractor) Extract(visited resource.VisitedURL, body []byte, headers http.Header) ExtractionResult {
	result := ExtractionResult{}
	childDepth := visited.Depth + 1

	// Link response headers are content-type independent
	e.extractHeaderLinks(&result, visited, headers, childDepth)

	switch visited.ContentType {
	case resource.ContentRedirect:
		e.extractRedirect(&result, visited, headers, childDepth)
	case resource.ContentHTML:
		e.extractHTML(&result, visited, body, childDepth)
	case resource.ContentStylesheet:
		e.extractCSS(&result, visited, string(body), childDepth)
	case resource.ContentScript:
		e.extractJS(&result, visited, string(body), childDepth)
	case resource.ContentXML:
		e.extractSitemap(&result, visited, body, childDepth)
	case resource.ContentJSON:
		e.extractManifest(&result, visited, body, childDepth)
	}

	return result
}

func (e *ContentExtractor) extractRedirect(result *ExtractionResult, visited resource.VisitedURL, headers http.Header, depth int) {
	location := headers.Get("Location")
	if location == "" {
		return
	}
	result.setExtra(resource.ExtraLocation, location)
	if resolved, ok := urlutil.Resolve(visited.URL, location); ok {
		result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceRedirectLocation, depth))
	}
}

// extractHeaderLinks pulls targets out of Link response headers
// (preload, stylesheet, icon hints).
func (e *ContentExtractor) extractHeaderLinks(result *ExtractionResult, visited resource.VisitedURL, headers http.Header, depth int) {
	for _, header := range headers.Values("Link") {
		for _, entry := range strings.Split(header, ",") {
			entry = strings.TrimSpace(entry)
			if !strings.HasPrefix(entry, "<") {
				continue
			}
			end := strings.Index(entry, ">")
			if end <= 1 {
				continue
			}
			target := entry[1:end]
			if resolved, ok := resolveRef(visited.URL, target); ok {
				result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceHeaderLink, depth))
			}
		}
	}
}
