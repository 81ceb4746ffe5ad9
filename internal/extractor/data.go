package extractor

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/resource"
)

// ExtractionResult carries everything one extraction pass produced:
// the discovered URLs with their source attributes, the extras the
// extractor is allowed to set exactly once, and (for HTML) the parsed
// document so analyzers reuse it instead of re-parsing.
type ExtractionResult struct {
	Found  []resource.FoundURL
	Extras map[string]string
	Doc    *goquery.Document
	// ParseNotice is non-empty when the body could only be processed
	// best-effort; the engine surfaces it on the summary.
	ParseNotice string
}

func (r *ExtractionResult) addFound(found resource.FoundURL) {
	r.Found = append(r.Found, found)
}

func (r *ExtractionResult) setExtra(key, value string) {
	if value == "" {
		return
	}
	if r.Extras == nil {
		r.Extras = make(map[string]string)
	}
	r.Extras[key] = value
}
