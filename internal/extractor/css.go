package extractor

import (
	"regexp"
	"strings"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	cssURLPattern    = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)
	cssImportPattern = regexp.MustCompile(`@import\s+['"]([^'"]+)['"]`)
)

func (e *ContentExtractor) extractCSS(result *ExtractionResult, visited resource.VisitedURL, body string, depth int) {
	for _, ref := range cssURLRefs(body) {
		if resolved, ok := resolveRef(visited.URL, ref); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceCSSUrl, depth))
		}
	}
	for _, match := range cssImportPattern.FindAllStringSubmatch(body, -1) {
		if resolved, ok := resolveRef(visited.URL, match[1]); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceCSSUrl, depth))
		}
	}
}

// cssURLRefs extracts url(...) references, skipping inline data URIs.
func cssURLRefs(body string) []string {
	var refs []string
	for _, match := range cssURLPattern.FindAllStringSubmatch(body, -1) {
		ref := match[1]
		if strings.HasPrefix(strings.ToLower(ref), "data:") {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
