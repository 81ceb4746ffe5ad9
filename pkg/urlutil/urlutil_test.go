package urlutil_test

import (
	"net/url"
	"testing"

	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases scheme and host",
			input: "HTTPS://Example.COM/Path",
			want:  "https://example.com/Path",
		},
		{
			name:  "strips default https port",
			input: "https://example.com:443/a",
			want:  "https://example.com/a",
		},
		{
			name:  "strips default http port",
			input: "http://example.com:80/a",
			want:  "http://example.com/a",
		},
		{
			name:  "keeps explicit non-default port",
			input: "https://example.com:8443/a",
			want:  "https://example.com:8443/a",
		},
		{
			name:  "collapses dot segments",
			input: "https://example.com/a/./b/../c",
			want:  "https://example.com/a/c",
		},
		{
			name:  "drops fragment",
			input: "https://example.com/a#section",
			want:  "https://example.com/a",
		},
		{
			name:  "preserves query",
			input: "https://example.com/a?b=1&c=2",
			want:  "https://example.com/a?b=1&c=2",
		},
		{
			name:  "preserves trailing slash",
			input: "https://example.com/dir/",
			want:  "https://example.com/dir/",
		},
		{
			name:  "empty path becomes root",
			input: "https://example.com",
			want:  "https://example.com/",
		},
		{
			name:  "idn host becomes punycode",
			input: "https://bücher.example/a",
			want:  "https://xn--bcher-kva.example/a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := urlutil.CanonicalString(mustParse(t, tt.input))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTP://Example.Com:80/a/../b/?q=1#frag",
		"https://example.com/dir/",
		"https://example.com/a%2fb",
	}
	for _, raw := range inputs {
		once := urlutil.Canonicalize(mustParse(t, raw))
		twice := urlutil.Canonicalize(once)
		assert.Equal(t, once.String(), twice.String(), "input %q", raw)
	}
}

func TestFingerprint_EqualForEquivalentSpellings(t *testing.T) {
	a := urlutil.Fingerprint(mustParse(t, "HTTPS://EXAMPLE.com:443/a/./b#x"))
	b := urlutil.Fingerprint(mustParse(t, "https://example.com/a/b"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestFingerprint_DistinguishesTrailingSlashAndQuery(t *testing.T) {
	base := urlutil.Fingerprint(mustParse(t, "https://example.com/a"))
	slash := urlutil.Fingerprint(mustParse(t, "https://example.com/a/"))
	query := urlutil.Fingerprint(mustParse(t, "https://example.com/a?x=1"))

	assert.NotEqual(t, base, slash)
	assert.NotEqual(t, base, query)
	assert.NotEqual(t, slash, query)
}

func TestOrigin(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "https://example.com/a", want: "https://example.com:443"},
		{input: "http://example.com/a", want: "http://example.com:80"},
		{input: "https://example.com:8443/a", want: "https://example.com:8443"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, urlutil.Origin(mustParse(t, tt.input)))
	}
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "example.com:443", urlutil.HostPort(mustParse(t, "https://example.com/")))
	assert.Equal(t, "example.com:8080", urlutil.HostPort(mustParse(t, "http://example.com:8080/")))
}

func TestIsStaticFile(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "https://cdn.example.com/app.css", want: true},
		{input: "https://cdn.example.com/app.min.js", want: true},
		{input: "https://cdn.example.com/logo.svg?v=3", want: true},
		{input: "https://cdn.example.com/font.woff2", want: true},
		{input: "https://example.com/report.pdf", want: true},
		{input: "https://example.com/data.json", want: true},
		{input: "https://example.com/page", want: false},
		{input: "https://example.com/page.html", want: false},
		{input: "https://example.com/dir.css/page", want: false},
		{input: "https://example.com/trailing.", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, urlutil.IsStaticFile(mustParse(t, tt.input)), tt.input)
	}
}

func TestResolve(t *testing.T) {
	base := mustParse(t, "https://example.com/docs/page.html")

	resolved, ok := urlutil.Resolve(base, "../assets/app.css")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/assets/app.css", resolved.String())

	resolved, ok = urlutil.Resolve(base, "https://other.example/x")
	require.True(t, ok)
	assert.Equal(t, "https://other.example/x", resolved.String())

	_, ok = urlutil.Resolve(url.URL{}, "/no-host")
	assert.False(t, ok)
}
