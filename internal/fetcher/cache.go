package fetcher

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

// parseCacheHeaders derives the cache lifetime and flag bitset from
// response headers. Lifetime priority: s-maxage, then max-age, then
// Expires minus Date.
func parseCacheHeaders(headers http.Header) (*int64, resource.CacheFlags) {
	var flags resource.CacheFlags
	var lifetime *int64

	cacheControl := strings.ToLower(headers.Get("Cache-Control"))
	directives := parseDirectives(cacheControl)

	if _, ok := directives["no-store"]; ok {
		flags |= resource.CacheHasNoStore
	}
	if _, ok := directives["no-cache"]; ok {
		flags |= resource.CacheHasNoCache
	}
	if headers.Get("Etag") != "" {
		flags |= resource.CacheHasETag
	}
	if headers.Get("Last-Modified") != "" {
		flags |= resource.CacheHasLastModified
	}

	if value, ok := directives["s-maxage"]; ok {
		if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
			lifetime = &seconds
		}
	}
	if value, ok := directives["max-age"]; ok {
		flags |= resource.CacheHasMaxAge
		if lifetime == nil {
			if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
				lifetime = &seconds
			}
		}
	}

	if lifetime == nil {
		expires := headers.Get("Expires")
		date := headers.Get("Date")
		if expires != "" && date != "" {
			expiresAt, errExpires := http.ParseTime(expires)
			dateAt, errDate := http.ParseTime(date)
			if errExpires == nil && errDate == nil {
				seconds := int64(expiresAt.Sub(dateAt) / time.Second)
				lifetime = &seconds
			}
		}
	}

	return lifetime, flags
}

// parseDirectives splits a Cache-Control value into directive → value.
func parseDirectives(value string) map[string]string {
	directives := make(map[string]string)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, "="); idx != -1 {
			directives[part[:idx]] = strings.Trim(part[idx+1:], `"`)
		} else {
			directives[part] = ""
		}
	}
	return directives
}
