package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// robots.txt bodies larger than this are truncated before parsing.
const maxRobotsSize = 500 * 1024

// Robot decides whether a URL may be fetched.
type Robot interface {
	Decide(ctx context.Context, u url.URL) Decision
}

type originPolicy struct {
	data        *robotstxt.RobotsData
	sitemaps    []string
	fetchFailed bool
	// consumed flips after the first Decide for the origin so
	// sitemaps and the fetch-failure notice surface exactly once.
	consumed bool
}

// CachedRobot caches one parsed policy per origin. Concurrent first
// touches of an origin collapse into a single robots.txt request.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]*originPolicy
}

func NewCachedRobot(metadataSink metadata.MetadataSink, httpClient *http.Client, userAgent string) *CachedRobot {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CachedRobot{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
		cache:        make(map[string]*originPolicy),
	}
}

// Decide answers allow/deny for u, fetching the origin's robots.txt on
// first reference. A fetch failure degrades to allow-all with
// Decision.FetchFailed set once.
func (r *CachedRobot) Decide(ctx context.Context, u url.URL) Decision {
	origin := urlutil.Origin(u)
	policy := r.policyFor(ctx, origin, u)

	decision := Decision{Allowed: true}

	r.mu.Lock()
	if !policy.consumed {
		policy.consumed = true
		decision.Sitemaps = policy.sitemaps
		decision.FetchFailed = policy.fetchFailed
	}
	r.mu.Unlock()

	if policy.data == nil {
		return decision
	}

	group := policy.data.FindGroup(r.userAgent)
	if group != nil {
		decision.CrawlDelay = group.CrawlDelay
		pathQuery := u.EscapedPath()
		if pathQuery == "" {
			pathQuery = "/"
		}
		if u.RawQuery != "" {
			pathQuery += "?" + u.RawQuery
		}
		decision.Allowed = group.Test(pathQuery)
	}
	return decision
}

func (r *CachedRobot) policyFor(ctx context.Context, origin string, u url.URL) *originPolicy {
	r.mu.Lock()
	cached, exists := r.cache[origin]
	r.mu.Unlock()
	if exists {
		return cached
	}

	result, _, _ := r.group.Do(origin, func() (any, error) {
		policy := r.fetchPolicy(ctx, u)
		r.mu.Lock()
		r.cache[origin] = policy
		r.mu.Unlock()
		return policy, nil
	})
	return result.(*originPolicy)
}

func (r *CachedRobot) fetchPolicy(ctx context.Context, u url.URL) *originPolicy {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return r.failedPolicy(robotsURL, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/plain,*/*")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return r.failedPolicy(robotsURL, err)
	}
	defer resp.Body.Close()

	// Anything but a successful body is treated as "no restrictions":
	// 4xx means no robots.txt exists; 5xx and redirect loops degrade
	// to allow-all with a notice rather than blocking the crawl.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return r.failedPolicy(robotsURL, fmt.Errorf("server error %d", resp.StatusCode))
		}
		return &originPolicy{}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return r.failedPolicy(robotsURL, err)
	}

	data, err := robotstxt.FromBytes(content)
	if err != nil {
		return r.failedPolicy(robotsURL, err)
	}

	return &originPolicy{
		data:     data,
		sitemaps: data.Sitemaps,
	}
}

func (r *CachedRobot) failedPolicy(robotsURL string, err error) *originPolicy {
	if r.metadataSink != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"robots",
			"CachedRobot.fetchPolicy",
			metadata.CauseNetworkFailure,
			fmt.Sprintf("robots.txt unavailable, allowing all: %v", err),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, robotsURL),
			},
		)
	}
	return &originPolicy{fetchFailed: true}
}
