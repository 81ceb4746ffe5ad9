package analyzer

import (
	"sync"

	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/rohmanhakim/site-auditor/pkg/hashutil"
)

// Stats counts unique subjects per severity for one analyzer. Subjects
// are de-duplicated by a short content hash so repeated findings about
// the same thing count once.
type Stats struct {
	mu     sync.Mutex
	counts map[store.Status]int
	seen   map[string]struct{}
}

func NewStats() *Stats {
	return &Stats{
		counts: make(map[store.Status]int),
		seen:   make(map[string]struct{}),
	}
}

// Count registers one subject under one severity.
func (s *Stats) Count(status store.Status, subject string) {
	key := string(status) + ":" + hashutil.ShortHash64([]byte(subject))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, duplicate := s.seen[key]; duplicate {
		return
	}
	s.seen[key] = struct{}{}
	s.counts[status]++
}

// CountAnalysis registers every finding of an analysis result.
func (s *Stats) CountAnalysis(analysis *store.URLAnalysis) {
	if analysis == nil {
		return
	}
	for _, finding := range analysis.Ok {
		s.Count(store.StatusOk, finding.Message)
	}
	for _, finding := range analysis.Notice {
		s.Count(store.StatusNotice, finding.Message)
	}
	for _, finding := range analysis.Warning {
		s.Count(store.StatusWarning, finding.Message)
	}
	for _, finding := range analysis.Critical {
		s.Count(store.StatusCritical, finding.Message)
	}
}

// Snapshot copies the per-severity totals.
func (s *Stats) Snapshot() map[store.Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[store.Status]int, len(s.counts))
	for status, count := range s.counts {
		copied[status] = count
	}
	return copied
}
