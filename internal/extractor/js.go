package extractor

import (
	"regexp"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

// Heuristic scan for URL-shaped string literals in scripts: absolute
// http(s) URLs, or site-absolute paths like "/api/v1/users".
//
//nolint:gochecknoglobals // compiled once, read-only
var (
	jsAbsoluteURLPattern  = regexp.MustCompile(`['"](https?://[^'"\s<>]+)['"]`)
	jsAbsolutePathPattern = regexp.MustCompile(`['"](/[a-z0-9\-_/]*)['"]`)
)

func (e *ContentExtractor) extractJS(result *ExtractionResult, visited resource.VisitedURL, body string, depth int) {
	seen := make(map[string]struct{})
	emit := func(ref string) {
		if _, duplicate := seen[ref]; duplicate {
			return
		}
		seen[ref] = struct{}{}
		if resolved, ok := resolveRef(visited.URL, ref); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceJSStringLiteral, depth))
		}
	}

	for _, match := range jsAbsoluteURLPattern.FindAllStringSubmatch(body, -1) {
		emit(match[1])
	}
	for _, match := range jsAbsolutePathPattern.FindAllStringSubmatch(body, -1) {
		if match[1] != "/" {
			emit(match[1])
		}
	}
}
