package scope_test

import (
	"net/url"
	"testing"

	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	seed, err := url.Parse("https://ex.com/")
	require.NoError(t, err)
	return config.Default(*seed)
}

func decide(t *testing.T, cfg config.Config, raw string) scope.Decision {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	filter := scope.NewFilter(cfg)
	return filter.Decide(*u)
}

func TestDecide_SameOriginIsCrawled(t *testing.T) {
	cfg := testConfig(t)

	d := decide(t, cfg, "https://ex.com/about")
	assert.Equal(t, scope.VerdictCrawl, d.Verdict)
	assert.Equal(t, resource.KindInternal, d.Kind)
}

func TestDecide_DifferentPortIsDifferentOrigin(t *testing.T) {
	cfg := testConfig(t)

	d := decide(t, cfg, "https://ex.com:8443/about")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipDisallowedExternal, d.Reason)
}

func TestDecide_AllowedHostGlob(t *testing.T) {
	cfg := testConfig(t)
	cfg.SetAllowedHosts([]string{"*.ex.com", "partner.example"})

	d := decide(t, cfg, "https://docs.ex.com/guide")
	assert.Equal(t, scope.VerdictCrawl, d.Verdict)
	assert.Equal(t, resource.KindAllowedExternal, d.Kind)

	d = decide(t, cfg, "https://partner.example/")
	assert.Equal(t, scope.VerdictCrawl, d.Verdict)

	d = decide(t, cfg, "https://other.example/")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
}

func TestDecide_ExcludeRegexWins(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.SetIncludeRegex([]string{"^/docs/"}))
	require.NoError(t, cfg.SetExcludeRegex([]string{"/private"}))

	d := decide(t, cfg, "https://ex.com/docs/private/x")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipExcludedByRegex, d.Reason)
}

func TestDecide_IncludeRegexMismatch(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.SetIncludeRegex([]string{"^/docs/"}))

	d := decide(t, cfg, "https://ex.com/blog/post")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipIncludeRegexMismatch, d.Reason)

	d = decide(t, cfg, "https://ex.com/docs/intro")
	assert.Equal(t, scope.VerdictCrawl, d.Verdict)
}

func TestDecide_StaticExternalFetchOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.SetAllowedStaticHosts([]string{"cdn.ex.net"})

	d := decide(t, cfg, "https://cdn.ex.net/x.css")
	assert.Equal(t, scope.VerdictFetchOnly, d.Verdict)
	assert.Equal(t, resource.KindStaticExternal, d.Kind)

	// non-static resource on the static host is not crawled
	d = decide(t, cfg, "https://cdn.ex.net/page")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipDisallowedExternal, d.Reason)
}

func TestDecide_SchemeHandling(t *testing.T) {
	cfg := testConfig(t)

	d := decide(t, cfg, "ftp://ex.com/file")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipUnsupportedScheme, d.Reason)

	d = decide(t, cfg, "/relative/only")
	assert.Equal(t, scope.VerdictSkip, d.Verdict)
	assert.Equal(t, resource.SkipMalformed, d.Reason)
}

func TestDecide_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.SetAllowedStaticHosts([]string{"cdn.ex.net"})
	require.NoError(t, cfg.SetIncludeRegex([]string{"^/docs/"}))

	urls := []string{
		"https://ex.com/docs/a",
		"https://ex.com/blog/a",
		"https://cdn.ex.net/x.css",
		"https://other.example/",
	}
	for _, raw := range urls {
		first := decide(t, cfg, raw)
		second := decide(t, cfg, raw)
		assert.Equal(t, first, second, raw)
	}
}
