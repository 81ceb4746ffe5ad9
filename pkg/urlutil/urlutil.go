package urlutil

import (
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/rohmanhakim/site-auditor/pkg/hashutil"
	"golang.org/x/net/idna"
)

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - IDN hosts are converted to punycode
//   - Default ports are omitted (:80 for http, :443 for https)
//   - "." and ".." path segments are collapsed
//   - A trailing slash is preserved (it is semantically distinct)
//   - Fragments are removed
//   - Query parameters are preserved
//   - Percent escapes are re-encoded to upper-hex
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = strings.ToLower(canonical.Scheme)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	host := strings.ToLower(canonical.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	port := canonical.Port()
	if port == defaultPort(canonical.Scheme) {
		port = ""
	}
	switch {
	case port != "":
		canonical.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		// bare IPv6 literal
		canonical.Host = "[" + host + "]"
	default:
		canonical.Host = host
	}

	canonical.Path = collapsePath(canonical.Path)
	// Drop RawPath so String() re-escapes the cleaned path with
	// upper-hex percent escapes.
	canonical.RawPath = ""

	return canonical
}

// CanonicalString is the canonical spelling of a URL, the string the
// fingerprint is computed over.
func CanonicalString(sourceUrl url.URL) string {
	canonical := Canonicalize(sourceUrl)
	return canonical.String()
}

// Fingerprint is the stable 32-hex-character identity of a URL,
// derived from its canonical string.
func Fingerprint(sourceUrl url.URL) string {
	return hashutil.Fingerprint128([]byte(CanonicalString(sourceUrl)))
}

// collapsePath removes "." and ".." segments while preserving a
// trailing slash. An empty path becomes "/".
func collapsePath(p string) string {
	if p == "" {
		return "/"
	}
	trailingSlash := strings.HasSuffix(p, "/")
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = "/"
	}
	if trailingSlash && !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}
	return cleaned
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}

// Origin is the (scheme, host, port) identity of a URL in
// "scheme://host:port" form, with the default port made explicit.
// Distinct ports are distinct origins.
func Origin(sourceUrl url.URL) string {
	canonical := Canonicalize(sourceUrl)
	port := canonical.Port()
	if port == "" {
		port = defaultPort(canonical.Scheme)
	}
	host := canonical.Hostname()
	if port == "" {
		return canonical.Scheme + "://" + host
	}
	return canonical.Scheme + "://" + net.JoinHostPort(host, port)
}

// HostPort returns the "host:port" key used for per-host fairness,
// with the default port made explicit.
func HostPort(sourceUrl url.URL) string {
	canonical := Canonicalize(sourceUrl)
	port := canonical.Port()
	if port == "" {
		port = defaultPort(canonical.Scheme)
	}
	if port == "" {
		return canonical.Hostname()
	}
	return net.JoinHostPort(canonical.Hostname(), port)
}

// Resolve interprets ref relative to base, the way a browser resolves
// a document link.
func Resolve(base url.URL, ref string) (url.URL, bool) {
	parsedRef, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return url.URL{}, false
	}
	resolved := base.ResolveReference(parsedRef)
	if resolved.Host == "" {
		return url.URL{}, false
	}
	return *resolved, true
}
