package scope

import (
	"net/url"
	"path"
	"strings"

	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
)

/*
Scope Filter Responsibilities
- Decide crawl / fetch-only / skip for every candidate URL
- Knows nothing about:
	- robots.txt
	- depth or URL-count limits
	- fetching

Depth and count limits belong to the frontier; robots belongs to the
engine's admission step. The filter is pure: same config + same URL
always yields the same decision.
*/

// Verdict is the filter's decision class.
type Verdict int

const (
	// VerdictCrawl admits the URL as a crawl seed: fetch it and
	// extract further URLs from it.
	VerdictCrawl Verdict = iota
	// VerdictFetchOnly fetches the resource; of its discoveries only a
	// redirect target becomes a crawl candidate.
	VerdictFetchOnly
	// VerdictSkip rejects the URL with a reason.
	VerdictSkip
)

// Decision pairs the verdict with its skip reason and the URL kind.
type Decision struct {
	Verdict Verdict
	Reason  resource.SkipReason
	Kind    resource.URLKind
}

// Filter applies the configured scope rules.
type Filter struct {
	seedOrigin         string
	allowedHosts       []string
	allowedStaticHosts []string
	cfg                config.Config
}

func NewFilter(cfg config.Config) Filter {
	seed := cfg.SeedURL()
	return Filter{
		seedOrigin:         urlutil.Origin(seed),
		allowedHosts:       cfg.AllowedHosts(),
		allowedStaticHosts: cfg.AllowedStaticHosts(),
		cfg:                cfg,
	}
}

// Decide runs the decision table, in order:
//  1. unsupported or malformed URLs are skipped
//  2. same origin as the seed, or an allowedHosts match, admits the
//     URL to crawling, subject to the include/exclude regexes
//  3. an external static resource on an allowed static host is
//     fetched but not crawled
//  4. everything else is a disallowed external
func (f *Filter) Decide(u url.URL) Decision {
	if u.Scheme != "http" && u.Scheme != "https" {
		reason := resource.SkipUnsupportedScheme
		if u.Scheme == "" {
			reason = resource.SkipMalformed
		}
		return Decision{Verdict: VerdictSkip, Reason: reason, Kind: resource.KindDisallowed}
	}
	if u.Host == "" {
		return Decision{Verdict: VerdictSkip, Reason: resource.SkipMalformed, Kind: resource.KindDisallowed}
	}

	sameOrigin := urlutil.Origin(u) == f.seedOrigin
	hostAllowed := sameOrigin || matchesAnyGlob(u.Hostname(), f.allowedHosts)

	if hostAllowed {
		kind := resource.KindInternal
		if !sameOrigin {
			kind = resource.KindAllowedExternal
		}
		if reason, ok := f.pathFiltered(u); ok {
			return Decision{Verdict: VerdictSkip, Reason: reason, Kind: kind}
		}
		return Decision{Verdict: VerdictCrawl, Kind: kind}
	}

	if urlutil.IsStaticFile(u) && matchesAnyGlob(u.Hostname(), f.allowedStaticHosts) {
		return Decision{Verdict: VerdictFetchOnly, Kind: resource.KindStaticExternal}
	}

	return Decision{Verdict: VerdictSkip, Reason: resource.SkipDisallowedExternal, Kind: resource.KindDisallowed}
}

// pathFiltered applies excludeRegex then includeRegex to the URL path.
func (f *Filter) pathFiltered(u url.URL) (resource.SkipReason, bool) {
	target := u.Path
	if target == "" {
		target = "/"
	}

	for _, re := range f.cfg.ExcludeRegex() {
		if re.MatchString(target) {
			return resource.SkipExcludedByRegex, true
		}
	}

	includes := f.cfg.IncludeRegex()
	if len(includes) == 0 {
		return "", false
	}
	for _, re := range includes {
		if re.MatchString(target) {
			return "", false
		}
	}
	return resource.SkipIncludeRegexMismatch, true
}

func matchesAnyGlob(host string, patterns []string) bool {
	host = strings.ToLower(host)
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		if pattern == host {
			return true
		}
		if matched, err := path.Match(pattern, host); err == nil && matched {
			return true
		}
	}
	return false
}
