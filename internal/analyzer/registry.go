package analyzer

import (
	"sort"

	"github.com/rohmanhakim/site-auditor/internal/config"
)

// Factory builds one analyzer instance per crawl.
type Factory func() Analyzer

type registration struct {
	name    string
	factory Factory
}

// registry is the static analyzer table. Each analyzer contributes an
// entry at build time; there is no scanning or dynamic loading.
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var registry = []registration{
	{name: NameHeaders, factory: func() Analyzer { return NewHeadersAnalyzer() }},
	{name: NameCaching, factory: func() Analyzer { return NewCachingAnalyzer() }},
	{name: NameRedirects, factory: func() Analyzer { return NewRedirectsAnalyzer() }},
	{name: NamePage404, factory: func() Analyzer { return NewPage404Analyzer() }},
	{name: NameSpeed, factory: func() Analyzer { return NewSpeedAnalyzer() }},
	{name: NameBestPractice, factory: func() Analyzer { return NewBestPracticeAnalyzer() }},
	{name: NameAccessibility, factory: func() Analyzer { return NewAccessibilityAnalyzer() }},
	{name: NameSecurity, factory: func() Analyzer { return NewSecurityAnalyzer() }},
	{name: NameSeo, factory: func() Analyzer { return NewSeoAndOpenGraphAnalyzer() }},
	{name: NameSkippedUrls, factory: func() Analyzer { return NewSkippedUrlsAnalyzer() }},
	{name: NameContentTypes, factory: func() Analyzer { return NewContentTypeAnalyzer() }},
	{name: NameSourceDomains, factory: func() Analyzer { return NewSourceDomainsAnalyzer() }},
	{name: NameDns, factory: func() Analyzer { return NewDnsAnalyzer() }},
	{name: NameSslTls, factory: func() Analyzer { return NewSslTlsAnalyzer() }},
}

// Names lists every registered analyzer name.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, entry := range registry {
		names = append(names, entry.name)
	}
	return names
}

// Active instantiates the registry, drops names matching the filter
// regex, consults ShouldBeActivated, configures the survivors, and
// returns them sorted by Order.
func Active(cfg config.Config) []Analyzer {
	filter := cfg.AnalyzerFilterRegex()

	var active []Analyzer
	for _, entry := range registry {
		if filter != nil && filter.MatchString(entry.name) {
			continue
		}
		instance := entry.factory()
		if !instance.ShouldBeActivated(cfg) {
			continue
		}
		instance.Configure(cfg)
		active = append(active, instance)
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order() < active[j].Order()
	})
	return active
}
