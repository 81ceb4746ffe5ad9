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

// SecurityAnalyzer evaluates the security response headers and the
// cookie attribute hygiene of every HTML page and, on HTTPS pages,
// checks the content for mixed-scheme form targets and iframes.
type SecurityAnalyzer struct {
	baseAnalyzer
	mu         sync.Mutex
	htmlPages  int
	missingCSP int
	warnings   int
	criticals  int
}

func NewSecurityAnalyzer() *SecurityAnalyzer {
	return &SecurityAnalyzer{baseAnalyzer: baseAnalyzer{name: NameSecurity, order: 80}}
}

func (a *SecurityAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	if visited.ContentType != resource.ContentHTML || !visited.IsSuccess() || headers == nil {
		return nil
	}

	analysis := &store.URLAnalysis{}
	isHTTPS := visited.URL.Scheme == "https"
	missingCSP := false

	a.checkHeaders(analysis, headers, isHTTPS, &missingCSP)
	a.checkCookies(analysis, headers)
	if isHTTPS && doc != nil {
		a.checkMixedContent(analysis, doc)
	}

	a.mu.Lock()
	a.htmlPages++
	if missingCSP {
		a.missingCSP++
	}
	a.warnings += len(analysis.Warning)
	a.criticals += len(analysis.Critical)
	a.mu.Unlock()

	return analysis
}

func (a *SecurityAnalyzer) checkHeaders(analysis *store.URLAnalysis, headers http.Header, isHTTPS bool, missingCSP *bool) {
	add := func(status store.Status, message string) {
		analysis.Add(status, store.Finding{Message: message, Analysis: NameSecurity})
	}

	if headers.Get("Content-Security-Policy") == "" {
		*missingCSP = true
		add(store.StatusWarning, "missing Content-Security-Policy header")
	} else {
		add(store.StatusOk, "Content-Security-Policy present")
	}

	if isHTTPS {
		if headers.Get("Strict-Transport-Security") == "" {
			add(store.StatusWarning, "missing Strict-Transport-Security header")
		} else {
			add(store.StatusOk, "Strict-Transport-Security present")
		}
	}

	if !strings.EqualFold(headers.Get("X-Content-Type-Options"), "nosniff") {
		add(store.StatusWarning, "X-Content-Type-Options is not nosniff")
	}

	if headers.Get("X-Frame-Options") == "" &&
		!strings.Contains(headers.Get("Content-Security-Policy"), "frame-ancestors") {
		add(store.StatusNotice, "no clickjacking protection (X-Frame-Options or frame-ancestors)")
	}

	if headers.Get("Referrer-Policy") == "" {
		add(store.StatusNotice, "missing Referrer-Policy header")
	}

	if headers.Get("Permissions-Policy") == "" && headers.Get("Feature-Policy") == "" {
		add(store.StatusNotice, "missing Permissions-Policy header")
	}

	if xss := headers.Get("X-Xss-Protection"); xss != "" && xss != "0" {
		add(store.StatusNotice, "X-XSS-Protection is deprecated; rely on CSP instead")
	}

	if headers.Get("Access-Control-Allow-Origin") == "*" {
		add(store.StatusNotice, "Access-Control-Allow-Origin allows any origin")
	}

	for _, disclosing := range []string{"Server", "X-Powered-By"} {
		if value := headers.Get(disclosing); value != "" && strings.ContainsAny(value, "0123456789") {
			add(store.StatusNotice, fmt.Sprintf("%s header discloses version: %s", disclosing, value))
		}
	}
}

func (a *SecurityAnalyzer) checkCookies(analysis *store.URLAnalysis, headers http.Header) {
	for _, cookie := range headers.Values("Set-Cookie") {
		lower := strings.ToLower(cookie)
		name := cookie
		if idx := strings.Index(cookie, "="); idx != -1 {
			name = cookie[:idx]
		}
		var missing []string
		if !strings.Contains(lower, "httponly") {
			missing = append(missing, "HttpOnly")
		}
		if !strings.Contains(lower, "secure") {
			missing = append(missing, "Secure")
		}
		if !strings.Contains(lower, "samesite") {
			missing = append(missing, "SameSite")
		}
		if len(missing) > 0 {
			analysis.Add(store.StatusWarning, store.Finding{
				Message:  fmt.Sprintf("cookie %q missing flags: %s", name, strings.Join(missing, ", ")),
				Analysis: NameSecurity,
			})
		}
	}
}

func (a *SecurityAnalyzer) checkMixedContent(analysis *store.URLAnalysis, doc *goquery.Document) {
	doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		action := sel.AttrOr("action", "")
		if strings.HasPrefix(strings.ToLower(action), "http://") {
			analysis.Add(store.StatusCritical, store.Finding{
				Message:  "form on HTTPS page submits to insecure target",
				Analysis: NameSecurity,
				Detail:   []string{action},
			})
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if strings.HasPrefix(strings.ToLower(src), "http://") {
			analysis.Add(store.StatusWarning, store.Finding{
				Message:  "iframe on HTTPS page loads insecure content",
				Analysis: NameSecurity,
				Detail:   []string{src},
			})
		}
	})
}

func (a *SecurityAnalyzer) Finalize(st *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.criticals > 0:
		st.AddSummary(store.SummaryItem{
			Code:    NameSecurity,
			Message: fmt.Sprintf("%d critical security findings", a.criticals),
			Status:  store.StatusCritical,
		})
	case a.missingCSP > 0:
		st.AddSummary(store.SummaryItem{
			Code:    NameSecurity,
			Message: fmt.Sprintf("%d of %d HTML pages lack a Content-Security-Policy", a.missingCSP, a.htmlPages),
			Status:  store.StatusWarning,
		})
	case a.warnings > 0:
		st.AddSummary(store.SummaryItem{
			Code:    NameSecurity,
			Message: fmt.Sprintf("%d security warnings", a.warnings),
			Status:  store.StatusWarning,
		})
	default:
		st.AddSummary(store.SummaryItem{
			Code:    NameSecurity,
			Message: "security headers look sound",
			Status:  store.StatusOk,
		})
	}
}
