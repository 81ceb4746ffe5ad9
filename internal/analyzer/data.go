package analyzer

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// Registered analyzer names. The filter regex matches against these.
const (
	NameHeaders       = "headers"
	NameCaching       = "caching"
	NameRedirects     = "redirects"
	NamePage404       = "page404"
	NameSpeed         = "speed"
	NameBestPractice  = "best-practice"
	NameAccessibility = "accessibility"
	NameSecurity      = "security"
	NameSeo           = "seo-opengraph"
	NameSkippedUrls   = "skipped-urls"
	NameContentTypes  = "content-types"
	NameSourceDomains = "source-domains"
	NameDns           = "dns"
	NameSslTls        = "ssl-tls"
)

// baseAnalyzer carries the defaults most analyzers share: always
// activated, nothing to configure, no per-URL hook.
type baseAnalyzer struct {
	name  string
	order int
}

func (b *baseAnalyzer) Name() string {
	return b.name
}

func (b *baseAnalyzer) Order() int {
	return b.order
}

func (b *baseAnalyzer) ShouldBeActivated(cfg config.Config) bool {
	return true
}

func (b *baseAnalyzer) Configure(cfg config.Config) {}

func (b *baseAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	return nil
}
