package analyzer

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// AccessibilityAnalyzer applies structural accessibility rules to
// every HTML page.
type AccessibilityAnalyzer struct {
	baseAnalyzer
	mu       sync.Mutex
	pages    int
	findings int
}

func NewAccessibilityAnalyzer() *AccessibilityAnalyzer {
	return &AccessibilityAnalyzer{baseAnalyzer: baseAnalyzer{name: NameAccessibility, order: 70}}
}

func (a *AccessibilityAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	if visited.ContentType != resource.ContentHTML || !visited.IsSuccess() || doc == nil {
		return nil
	}

	analysis := &store.URLAnalysis{}
	warn := func(message string, detail ...string) {
		analysis.Add(store.StatusWarning, store.Finding{Message: message, Analysis: NameAccessibility, Detail: detail})
	}

	if lang, exists := doc.Find("html").First().Attr("lang"); !exists || strings.TrimSpace(lang) == "" {
		warn("<html> element missing or empty lang attribute")
	}

	missingAlt := 0
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if _, exists := sel.Attr("alt"); !exists {
			missingAlt++
		}
	})
	if missingAlt > 0 {
		warn(fmt.Sprintf("%d images missing alt attribute", missingAlt))
	}

	labelled := make(map[string]struct{})
	doc.Find("label[for]").Each(func(_ int, sel *goquery.Selection) {
		labelled[sel.AttrOr("for", "")] = struct{}{}
	})
	unlabelled := 0
	doc.Find("input, select, textarea").Each(func(_ int, sel *goquery.Selection) {
		inputType := strings.ToLower(sel.AttrOr("type", ""))
		if inputType == "hidden" || inputType == "submit" || inputType == "button" {
			return
		}
		if _, hasAria := sel.Attr("aria-label"); hasAria {
			return
		}
		if _, hasAriaRef := sel.Attr("aria-labelledby"); hasAriaRef {
			return
		}
		if id, hasID := sel.Attr("id"); hasID {
			if _, hasLabel := labelled[id]; hasLabel {
				return
			}
		}
		if sel.ParentsFiltered("label").Length() > 0 {
			return
		}
		unlabelled++
	})
	if unlabelled > 0 {
		warn(fmt.Sprintf("%d form controls without an associated label", unlabelled))
	}

	doc.Find("button, a[role=button]").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if _, hasAria := sel.Attr("aria-label"); hasAria {
			return
		}
		if _, hasAriaRef := sel.Attr("aria-labelledby"); hasAriaRef {
			return
		}
		analysis.Add(store.StatusWarning, store.Finding{
			Message:  "interactive element without accessible name",
			Analysis: NameAccessibility,
		})
	})

	doc.Find("nav, main, aside, header, footer").Each(func(_ int, sel *goquery.Selection) {
		if _, hasRole := sel.Attr("role"); !hasRole {
			analysis.Add(store.StatusNotice, store.Finding{
				Message:  fmt.Sprintf("landmark <%s> without explicit role", goquery.NodeName(sel)),
				Analysis: NameAccessibility,
			})
		}
	})

	a.mu.Lock()
	a.pages++
	a.findings += len(analysis.Warning) + len(analysis.Notice)
	a.mu.Unlock()

	if analysis.IsEmpty() {
		return nil
	}
	return analysis
}

func (a *AccessibilityAnalyzer) Finalize(st *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.findings == 0 {
		st.AddSummary(store.SummaryItem{
			Code:    NameAccessibility,
			Message: fmt.Sprintf("no accessibility findings on %d pages", a.pages),
			Status:  store.StatusOk,
		})
		return
	}
	st.AddSummary(store.SummaryItem{
		Code:    NameAccessibility,
		Message: fmt.Sprintf("%d accessibility findings across %d pages", a.findings, a.pages),
		Status:  store.StatusWarning,
	})
}
