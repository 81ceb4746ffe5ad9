package analyzer

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/hashutil"
	"golang.org/x/net/html"
)

const (
	maxInlineSvgBytes = 10 * 1024
	maxDomDepth       = 32
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	// attribute written without quotes, e.g. href=/page or alt=logo
	unquotedAttrPattern = regexp.MustCompile(`(?i)\s(href|src|content|alt|title)=([^"'\s>][^\s>]*)`)
	phonePattern        = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{2,4}\)[\s.-]?)?\d{3}[\s.-]\d{3,4}[\s.-]?\d{0,4}`)
)

// BestPracticeAnalyzer applies markup-quality rules per page and
// content-negotiation checks across the crawl.
type BestPracticeAnalyzer struct {
	baseAnalyzer
	brotliAdvertised bool

	mu           sync.Mutex
	titles       map[string]int
	descriptions map[string]int
	htmlPages    int
	sawBrotli    bool
	sawWebP      bool
	sawAvif      bool
}

func NewBestPracticeAnalyzer() *BestPracticeAnalyzer {
	return &BestPracticeAnalyzer{
		baseAnalyzer: baseAnalyzer{name: NameBestPractice, order: 60},
		titles:       make(map[string]int),
		descriptions: make(map[string]int),
	}
}

// Configure reads acceptEncoding: Brotli support is only judged when
// the crawl advertised it.
func (a *BestPracticeAnalyzer) Configure(cfg config.Config) {
	a.brotliAdvertised = strings.Contains(cfg.AcceptEncoding(), "br")
}

func (a *BestPracticeAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	a.observeEncoding(visited, headers)

	if visited.ContentType != resource.ContentHTML || !visited.IsSuccess() || doc == nil {
		return nil
	}

	analysis := &store.URLAnalysis{}

	a.checkHeadings(analysis, doc)
	a.checkInlineSvgs(analysis, doc)
	a.checkUnquotedAttributes(analysis, body)
	a.checkDomDepth(analysis, doc)
	a.checkPhoneNumbers(analysis, doc)

	a.mu.Lock()
	a.htmlPages++
	a.titles[strings.TrimSpace(visited.Extras[resource.ExtraTitle])]++
	a.descriptions[strings.TrimSpace(visited.Extras[resource.ExtraDescription])]++
	a.mu.Unlock()

	if analysis.IsEmpty() {
		return nil
	}
	return analysis
}

func (a *BestPracticeAnalyzer) observeEncoding(visited resource.VisitedURL, headers http.Header) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if headers != nil && strings.EqualFold(headers.Get("Content-Encoding"), "br") {
		// any successful decode counts as Brotli support, advertised
		// or not
		a.sawBrotli = true
	}
	switch {
	case strings.Contains(visited.ContentTypeHeader, "image/webp"),
		strings.HasSuffix(visited.URL.Path, ".webp"):
		a.sawWebP = true
	case strings.Contains(visited.ContentTypeHeader, "image/avif"),
		strings.HasSuffix(visited.URL.Path, ".avif"):
		a.sawAvif = true
	}
}

func (a *BestPracticeAnalyzer) checkHeadings(analysis *store.URLAnalysis, doc *goquery.Document) {
	h1Count := doc.Find("h1").Length()
	if h1Count == 0 {
		analysis.Add(store.StatusWarning, store.Finding{
			Message: "page has no <h1>", Analysis: NameBestPractice,
		})
	} else if h1Count > 1 {
		analysis.Add(store.StatusWarning, store.Finding{
			Message:  fmt.Sprintf("page has %d <h1> elements, expected exactly one", h1Count),
			Analysis: NameBestPractice,
		})
	}

	previousLevel := 0
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		level, _ := strconv.Atoi(goquery.NodeName(sel)[1:])
		if previousLevel > 0 && level > previousLevel+1 {
			analysis.Add(store.StatusNotice, store.Finding{
				Message:  fmt.Sprintf("heading level skips from h%d to h%d", previousLevel, level),
				Analysis: NameBestPractice,
			})
		}
		previousLevel = level
	})
}

func (a *BestPracticeAnalyzer) checkInlineSvgs(analysis *store.URLAnalysis, doc *goquery.Document) {
	seen := make(map[string]int)
	doc.Find("svg").Each(func(_ int, sel *goquery.Selection) {
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		if len(markup) > maxInlineSvgBytes {
			analysis.Add(store.StatusWarning, store.Finding{
				Message:  fmt.Sprintf("inline SVG of %d bytes, consider an external file", len(markup)),
				Analysis: NameBestPractice,
			})
		}
		seen[hashutil.ShortHash64([]byte(markup))]++
		if sel.Find("title").Length() == 0 && sel.AttrOr("aria-hidden", "") != "true" {
			analysis.Add(store.StatusNotice, store.Finding{
				Message:  "inline SVG without <title> and not aria-hidden",
				Analysis: NameBestPractice,
			})
		}
	})
	for _, count := range seen {
		if count > 1 {
			analysis.Add(store.StatusNotice, store.Finding{
				Message:  fmt.Sprintf("identical inline SVG repeated %d times", count),
				Analysis: NameBestPractice,
			})
		}
	}
}

func (a *BestPracticeAnalyzer) checkUnquotedAttributes(analysis *store.URLAnalysis, body []byte) {
	matches := unquotedAttrPattern.FindAllSubmatch(body, 20)
	if len(matches) == 0 {
		return
	}
	details := make([]string, 0, len(matches))
	for _, match := range matches {
		details = append(details, string(match[1])+"="+string(match[2]))
	}
	analysis.Add(store.StatusNotice, store.Finding{
		Message:  fmt.Sprintf("%d attribute values written without quotes", len(matches)),
		Analysis: NameBestPractice,
		Detail:   details,
	})
}

func (a *BestPracticeAnalyzer) checkDomDepth(analysis *store.URLAnalysis, doc *goquery.Document) {
	deepest := 0
	for _, root := range doc.Selection.Nodes {
		if depth := nodeDepth(root, 0); depth > deepest {
			deepest = depth
		}
	}
	if deepest > maxDomDepth {
		analysis.Add(store.StatusWarning, store.Finding{
			Message:  fmt.Sprintf("DOM nesting depth %d exceeds %d", deepest, maxDomDepth),
			Analysis: NameBestPractice,
		})
	}
}

func nodeDepth(node *html.Node, depth int) int {
	deepest := depth
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if childDepth := nodeDepth(child, depth+1); childDepth > deepest {
			deepest = childDepth
		}
	}
	return deepest
}

func (a *BestPracticeAnalyzer) checkPhoneNumbers(analysis *store.URLAnalysis, doc *goquery.Document) {
	clickable := make(map[string]struct{})
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, sel *goquery.Selection) {
		clickable[normalizePhone(sel.Text())] = struct{}{}
	})

	bodyText := doc.Find("body").Text()
	for _, candidate := range phonePattern.FindAllString(bodyText, 10) {
		normalized := normalizePhone(candidate)
		if len(normalized) < 7 {
			continue
		}
		if _, ok := clickable[normalized]; !ok {
			analysis.Add(store.StatusNotice, store.Finding{
				Message:  "phone number not wrapped in a tel: link",
				Analysis: NameBestPractice,
				Detail:   []string{strings.TrimSpace(candidate)},
			})
		}
	}
}

func normalizePhone(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

func (a *BestPracticeAnalyzer) Finalize(st *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.htmlPages > 1 {
		uniqueTitles := nonEmptyKeys(a.titles)
		uniqueDescriptions := nonEmptyKeys(a.descriptions)

		titleRatio := float64(uniqueTitles) / float64(a.htmlPages)
		if titleRatio < 0.9 {
			st.AddSummary(store.SummaryItem{
				Code:    "best-practice-titles",
				Message: fmt.Sprintf("only %d unique titles across %d pages", uniqueTitles, a.htmlPages),
				Status:  store.StatusWarning,
			})
		} else {
			st.AddSummary(store.SummaryItem{
				Code:    "best-practice-titles",
				Message: fmt.Sprintf("%d unique titles across %d pages", uniqueTitles, a.htmlPages),
				Status:  store.StatusOk,
			})
		}
		if uniqueDescriptions < a.htmlPages {
			st.AddSummary(store.SummaryItem{
				Code:    "best-practice-descriptions",
				Message: fmt.Sprintf("%d unique meta descriptions across %d pages", uniqueDescriptions, a.htmlPages),
				Status:  store.StatusNotice,
			})
		}
	}

	if a.brotliAdvertised {
		if a.sawBrotli {
			st.AddSummary(store.SummaryItem{
				Code:    "best-practice-brotli",
				Message: "server serves Brotli-encoded responses",
				Status:  store.StatusOk,
			})
		} else {
			st.AddSummary(store.SummaryItem{
				Code:    "best-practice-brotli",
				Message: "Brotli was advertised but never served",
				Status:  store.StatusNotice,
			})
		}
	}

	if !a.sawWebP && !a.sawAvif && a.htmlPages > 0 {
		st.AddSummary(store.SummaryItem{
			Code:    "best-practice-images",
			Message: "no WebP or AVIF images observed",
			Status:  store.StatusNotice,
		})
	}
}

func nonEmptyKeys(counts map[string]int) int {
	unique := 0
	for key := range counts {
		if key != "" {
			unique++
		}
	}
	return unique
}
