package robots_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rohmanhakim/site-auditor/internal/robots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverURL(t *testing.T, srv *httptest.Server, path string) url.URL {
	t.Helper()
	u, err := url.Parse(srv.URL + path)
	require.NoError(t, err)
	return *u
}

func TestDecide_DisallowedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")

	decision := robot.Decide(context.Background(), serverURL(t, srv, "/admin/users"))
	assert.False(t, decision.Allowed)

	decision = robot.Decide(context.Background(), serverURL(t, srv, "/public"))
	assert.True(t, decision.Allowed)
}

func TestDecide_AllowWinsOverShorterDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /docs\nAllow: /docs/public\n"))
			return
		}
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")

	assert.False(t, robot.Decide(context.Background(), serverURL(t, srv, "/docs/internal")).Allowed)
	assert.True(t, robot.Decide(context.Background(), serverURL(t, srv, "/docs/public/intro")).Allowed)
}

func TestDecide_SpecificUserAgentGroupPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /\n\nUser-agent: site-auditor\nAllow: /\n"))
			return
		}
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")
	assert.True(t, robot.Decide(context.Background(), serverURL(t, srv, "/page")).Allowed)

	blocked := robots.NewCachedRobot(nil, srv.Client(), "other-bot/1.0")
	assert.False(t, blocked.Decide(context.Background(), serverURL(t, srv, "/page")).Allowed)
}

func TestDecide_404MeansAllowAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")
	decision := robot.Decide(context.Background(), serverURL(t, srv, "/anything"))
	assert.True(t, decision.Allowed)
	assert.False(t, decision.FetchFailed)
}

func TestDecide_ServerErrorAllowsAllWithNoticeOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")

	first := robot.Decide(context.Background(), serverURL(t, srv, "/a"))
	assert.True(t, first.Allowed)
	assert.True(t, first.FetchFailed)

	second := robot.Decide(context.Background(), serverURL(t, srv, "/b"))
	assert.True(t, second.Allowed)
	assert.False(t, second.FetchFailed, "fetch-failure notice must surface once per origin")
}

func TestDecide_SitemapsSurfaceOnFirstDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nAllow: /\nSitemap: https://example.com/sitemap.xml\n"))
			return
		}
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")

	first := robot.Decide(context.Background(), serverURL(t, srv, "/"))
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, first.Sitemaps)

	second := robot.Decide(context.Background(), serverURL(t, srv, "/other"))
	assert.Empty(t, second.Sitemaps)
}

func TestDecide_SingleFetchPerOrigin(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt64(&fetches, 1)
			w.Write([]byte("User-agent: *\nAllow: /\n"))
		}
	}))
	defer srv.Close()

	robot := robots.NewCachedRobot(nil, srv.Client(), "site-auditor/1.0")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			robot.Decide(context.Background(), serverURL(t, srv, "/page"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches))
}
