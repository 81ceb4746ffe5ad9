package frontier_test

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/frontier"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
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

func found(t *testing.T, raw string, depth int) resource.FoundURL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return resource.NewFoundURL(*u, "", resource.SourceAHref, depth)
}

func TestEnqueueDequeue_FIFOOrder(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)

	for i := 0; i < 3; i++ {
		result := f.Enqueue(found(t, fmt.Sprintf("https://ex.com/p%d", i), 0), false)
		assert.Equal(t, frontier.OutcomeEnqueued, result.Outcome)
	}

	for i := 0; i < 3; i++ {
		token, ok := f.Dequeue()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("/p%d", i), token.Found().URL.Path)
		f.Done()
	}
}

func TestEnqueue_DuplicateDiscardedSilently(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)

	first := f.Enqueue(found(t, "https://ex.com/a", 0), false)
	second := f.Enqueue(found(t, "https://EX.com/a", 1), false)

	assert.Equal(t, frontier.OutcomeEnqueued, first.Outcome)
	assert.Equal(t, frontier.OutcomeDuplicate, second.Outcome)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, f.QueuedCount())
}

func TestEnqueue_DepthCap(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, 1, 100)

	assert.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/", 0), false).Outcome)
	assert.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/a", 1), false).Outcome)

	result := f.Enqueue(found(t, "https://ex.com/b", 2), false)
	assert.Equal(t, frontier.OutcomeSkipped, result.Outcome)
	assert.Equal(t, resource.SkipTooDeep, result.Reason)
}

func TestEnqueue_DepthZeroMeansSeedOnly(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, 0, 100)

	assert.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/", 0), false).Outcome)
	result := f.Enqueue(found(t, "https://ex.com/a", 1), false)
	assert.Equal(t, frontier.OutcomeSkipped, result.Outcome)
	assert.Equal(t, resource.SkipTooDeep, result.Reason)
}

func TestEnqueue_MaxUrlsReached(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 1)

	assert.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/", 0), false).Outcome)

	result := f.Enqueue(found(t, "https://ex.com/a", 1), false)
	assert.Equal(t, frontier.OutcomeSkipped, result.Outcome)
	assert.Equal(t, resource.SkipMaxUrlsReached, result.Reason)
	assert.Equal(t, 1, st.ReservedCount())
}

func TestDequeue_DrainsWhenIdle(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)

	_, ok := f.Dequeue()
	assert.False(t, ok, "empty frontier with no in-flight work must drain")
}

func TestDequeue_ParkedWorkerWokenByEnqueue(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)

	// hold one token in flight so the second worker parks
	require.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/", 0), false).Outcome)
	_, ok := f.Dequeue()
	require.True(t, ok)

	got := make(chan string, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		token, ok := f.Dequeue()
		if ok {
			got <- token.Found().URL.Path
			f.Done()
		}
	}()

	time.Sleep(20 * time.Millisecond)
	f.Enqueue(found(t, "https://ex.com/late", 1), false)
	f.Done()

	select {
	case path := <-got:
		assert.Equal(t, "/late", path)
	case <-time.After(time.Second):
		t.Fatal("parked worker never woke up")
	}
	wg.Wait()
}

func TestDequeue_WorkersDrainAfterLastDone(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)

	require.Equal(t, frontier.OutcomeEnqueued, f.Enqueue(found(t, "https://ex.com/", 0), false).Outcome)
	_, ok := f.Dequeue()
	require.True(t, ok)

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Dequeue()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	f.Done()

	select {
	case ok := <-done:
		assert.False(t, ok, "drain must release parked workers with ok=false")
	case <-time.After(time.Second):
		t.Fatal("parked worker not released on drain")
	}
}

func TestStop_RefusesFurtherDequeues(t *testing.T) {
	st := newStore(t)
	f := frontier.NewFrontier(st, -1, 100)
	f.Enqueue(found(t, "https://ex.com/", 0), false)

	f.Stop()
	_, ok := f.Dequeue()
	assert.False(t, ok)
}
