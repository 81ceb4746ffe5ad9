package store_test

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(1<<20, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestReserve_DeduplicatesEquivalentSpellings(t *testing.T) {
	st := newStore(t)

	fp1, fresh1 := st.Reserve(mustParse(t, "https://Example.com:443/a"), "", resource.SourceSeed)
	fp2, fresh2 := st.Reserve(mustParse(t, "https://example.com/a"), "", resource.SourceAHref)

	assert.True(t, fresh1)
	assert.False(t, fresh2)
	assert.Equal(t, fp1, fp2)
	assert.Equal(t, 1, st.ReservedCount())
}

func TestReserve_ConcurrentCallsYieldOneWinner(t *testing.T) {
	st := newStore(t)
	u := mustParse(t, "https://example.com/contended")

	var winners int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, fresh := st.Reserve(u, "", resource.SourceAHref); fresh {
				atomic.AddInt64(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners)
}

func TestCommitAndVisited_InsertionOrder(t *testing.T) {
	st := newStore(t)

	for i := 0; i < 5; i++ {
		u := mustParse(t, fmt.Sprintf("https://example.com/p%d", i))
		fp, fresh := st.Reserve(u, "", resource.SourceAHref)
		require.True(t, fresh)
		st.Commit(resource.VisitedURL{
			Fingerprint: fp,
			URL:         u,
			StatusCode:  200,
		})
	}

	visited := st.Visited()
	require.Len(t, visited, 5)
	for i, v := range visited {
		assert.Equal(t, fmt.Sprintf("/p%d", i), v.URL.Path)
	}
	assert.Equal(t, 5, st.CommittedCount())
}

func TestCommit_DoubleCommitPanics(t *testing.T) {
	st := newStore(t)
	fp, _ := st.Reserve(mustParse(t, "https://example.com/x"), "", resource.SourceSeed)
	st.Commit(resource.VisitedURL{Fingerprint: fp, StatusCode: 200})

	assert.Panics(t, func() {
		st.Commit(resource.VisitedURL{Fingerprint: fp, StatusCode: 200})
	})
}

func TestCommit_UnreservedPanics(t *testing.T) {
	st := newStore(t)
	assert.Panics(t, func() {
		st.Commit(resource.VisitedURL{Fingerprint: "deadbeef", StatusCode: 200})
	})
}

func TestPutBody_UnreservedPanics(t *testing.T) {
	st := newStore(t)
	assert.Panics(t, func() {
		st.PutBody("deadbeef", []byte("x"))
	})
}

func TestBodyRoundTrip_InMemory(t *testing.T) {
	st := newStore(t)
	fp, _ := st.Reserve(mustParse(t, "https://example.com/doc"), "", resource.SourceSeed)

	st.PutBody(fp, []byte("<html></html>"))
	body, ok := st.GetBody(fp)
	require.True(t, ok)
	assert.Equal(t, []byte("<html></html>"), body)

	_, ok = st.GetBody("0000000000000000")
	assert.False(t, ok)
}

func TestBodyRoundTrip_SpillsBeyondBudget(t *testing.T) {
	st, err := store.New(64, t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	large := make([]byte, 4096)
	for i := range large {
		large[i] = byte(i % 251)
	}

	var fps []string
	for i := 0; i < 8; i++ {
		u := mustParse(t, fmt.Sprintf("https://example.com/big/%d", i))
		fp, _ := st.Reserve(u, "", resource.SourceAHref)
		st.PutBody(fp, large)
		fps = append(fps, fp)
	}

	for _, fp := range fps {
		body, ok := st.GetBody(fp)
		require.True(t, ok, "body for %s lost in spill", fp)
		assert.Equal(t, large, body)
	}
}

func TestURLOf(t *testing.T) {
	st := newStore(t)
	u := mustParse(t, "HTTPS://Example.com/a/../b")
	fp, _ := st.Reserve(u, "", resource.SourceSeed)

	stored, ok := st.URLOf(fp)
	require.True(t, ok)
	assert.Equal(t, urlutil.CanonicalString(u), stored.String())

	_, ok = st.URLOf("missing")
	assert.False(t, ok)
}

func TestAnalyses(t *testing.T) {
	st := newStore(t)
	fp, _ := st.Reserve(mustParse(t, "https://example.com/"), "", resource.SourceSeed)

	analysis := &store.URLAnalysis{}
	analysis.Add(store.StatusWarning, store.Finding{Message: "missing CSP", Analysis: "security"})
	st.PutAnalysis(fp, "security", analysis)

	got := st.AnalysesOf(fp)
	require.Contains(t, got, "security")
	assert.Len(t, got["security"].Warning, 1)
	assert.Nil(t, st.AnalysesOf("missing"))
}

func TestSummary_LastWriteWinsKeepsPosition(t *testing.T) {
	st := newStore(t)

	st.AddSummary(store.SummaryItem{Code: "dns-ipv4", Message: "resolved", Status: store.StatusOk})
	st.AddSummary(store.SummaryItem{Code: "security", Message: "no CSP", Status: store.StatusWarning})
	st.AddSummary(store.SummaryItem{Code: "dns-ipv4", Message: "re-resolved", Status: store.StatusOk})

	summary := st.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, "dns-ipv4", summary[0].Code)
	assert.Equal(t, "re-resolved", summary[0].Message)
	assert.Equal(t, "security", summary[1].Code)

	counts := st.SummaryCounts()
	assert.Equal(t, 1, counts[store.StatusOk])
	assert.Equal(t, 1, counts[store.StatusWarning])
}

func TestTables_PrependAppendByCode(t *testing.T) {
	st := newStore(t)

	st.AppendTable(store.SuperTable{Code: "middle"})
	st.AppendTable(store.SuperTable{Code: "last"})
	st.PrependTable(store.SuperTable{Code: "first"})

	tables := st.Tables()
	require.Len(t, tables, 3)
	assert.Equal(t, "first", tables[0].Code)
	assert.Equal(t, "middle", tables[1].Code)
	assert.Equal(t, "last", tables[2].Code)

	table, ok := st.TableByCode("middle")
	require.True(t, ok)
	assert.Equal(t, "middle", table.Code)
	_, ok = st.TableByCode("absent")
	assert.False(t, ok)
}

func TestSkipLog(t *testing.T) {
	st := newStore(t)
	st.RecordSkip(resource.SkippedURL{
		URL:    mustParse(t, "https://other.example/x"),
		Reason: resource.SkipDisallowedExternal,
	})
	st.RecordSkip(resource.SkippedURL{
		URL:    mustParse(t, "https://example.com/admin"),
		Reason: resource.SkipRobotsTxt,
	})

	skipped := st.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, resource.SkipDisallowedExternal, skipped[0].Reason)
	assert.Equal(t, resource.SkipRobotsTxt, skipped[1].Reason)
}
