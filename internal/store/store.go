package store

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
)

// Store is the thread-safe registry of everything a crawl produces.
// Fine-grained locks keep the fetch path, the skip log, the summary,
// and the table list from serializing on one another.
type Store struct {
	mu        sync.RWMutex
	reserved  map[string]*reservation
	order     []string
	committed int

	bodies *bodyStore

	analysisMu sync.RWMutex
	analyses   map[string]map[string]*URLAnalysis

	summaryMu    sync.Mutex
	summaryOrder []string
	summaryItems map[string]SummaryItem

	tablesMu sync.RWMutex
	tables   []SuperTable

	skipMu  sync.Mutex
	skipped []resource.SkippedURL
}

type reservation struct {
	url        url.URL
	sourceFp   string
	sourceAttr resource.SourceAttr
	visited    *resource.VisitedURL
}

// New creates a Store whose bodies spill to a bbolt file under
// spillDir once memoryBudget bytes are held in memory.
func New(memoryBudget int64, spillDir string) (*Store, error) {
	bodies, err := newBodyStore(memoryBudget, spillDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		reserved: make(map[string]*reservation),
		bodies:   bodies,
		analyses: make(map[string]map[string]*URLAnalysis),

		summaryItems: make(map[string]SummaryItem),
	}, nil
}

// Close releases the spill file, if one was created.
func (s *Store) Close() error {
	return s.bodies.Close()
}

// Reserve atomically claims the fingerprint of u. The second return is
// true only for the single caller that will fetch it.
func (s *Store) Reserve(u url.URL, sourceFp string, sourceAttr resource.SourceAttr) (string, bool) {
	fp := urlutil.Fingerprint(u)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reserved[fp]; exists {
		return fp, false
	}
	s.reserved[fp] = &reservation{
		url:        urlutil.Canonicalize(u),
		sourceFp:   sourceFp,
		sourceAttr: sourceAttr,
	}
	s.order = append(s.order, fp)
	return fp, true
}

// ReservedCount is the number of fingerprints claimed so far.
func (s *Store) ReservedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reserved)
}

// CommittedCount is the number of fetch outcomes recorded so far.
func (s *Store) CommittedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// Commit records the outcome of the fetch for a reserved fingerprint.
// Committing twice, or committing an unreserved fingerprint, is a bug.
func (s *Store) Commit(visited resource.VisitedURL) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.reserved[visited.Fingerprint]
	if !exists {
		panic(fmt.Sprintf("store: commit of unreserved fingerprint %s", visited.Fingerprint))
	}
	if entry.visited != nil {
		panic(fmt.Sprintf("store: double commit of fingerprint %s", visited.Fingerprint))
	}
	copied := visited
	entry.visited = &copied
	s.committed++
}

// PutBody stores the fetched bytes under the fingerprint. The
// fingerprint must have been reserved first.
func (s *Store) PutBody(fp string, body []byte) {
	s.mu.RLock()
	_, exists := s.reserved[fp]
	s.mu.RUnlock()
	if !exists {
		panic(fmt.Sprintf("store: body for unreserved fingerprint %s", fp))
	}
	s.bodies.Put(fp, body)
}

// GetBody returns the stored bytes, transparently reading from the
// spill file when necessary. Second return is false if no body exists.
func (s *Store) GetBody(fp string) ([]byte, bool) {
	return s.bodies.Get(fp)
}

// URLOf resolves a fingerprint back to its canonical URL.
func (s *Store) URLOf(fp string) (url.URL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, exists := s.reserved[fp]
	if !exists {
		return url.URL{}, false
	}
	return entry.url, true
}

// Visited snapshots every committed record in insertion (reservation)
// order. Reserved-but-uncommitted fingerprints are not included.
func (s *Store) Visited() []resource.VisitedURL {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]resource.VisitedURL, 0, s.committed)
	for _, fp := range s.order {
		if entry := s.reserved[fp]; entry.visited != nil {
			snapshot = append(snapshot, *entry.visited)
		}
	}
	return snapshot
}

// VisitedByFingerprint returns one committed record.
func (s *Store) VisitedByFingerprint(fp string) (resource.VisitedURL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, exists := s.reserved[fp]
	if !exists || entry.visited == nil {
		return resource.VisitedURL{}, false
	}
	return *entry.visited, true
}

// PutAnalysis attaches one analyzer's per-URL result. The VisitedURL
// itself is never mutated.
func (s *Store) PutAnalysis(fp string, analyzerName string, analysis *URLAnalysis) {
	s.analysisMu.Lock()
	defer s.analysisMu.Unlock()

	byAnalyzer, exists := s.analyses[fp]
	if !exists {
		byAnalyzer = make(map[string]*URLAnalysis)
		s.analyses[fp] = byAnalyzer
	}
	byAnalyzer[analyzerName] = analysis
}

// AnalysesOf returns the per-analyzer results recorded for one URL.
func (s *Store) AnalysesOf(fp string) map[string]*URLAnalysis {
	s.analysisMu.RLock()
	defer s.analysisMu.RUnlock()

	byAnalyzer, exists := s.analyses[fp]
	if !exists {
		return nil
	}
	copied := make(map[string]*URLAnalysis, len(byAnalyzer))
	for name, analysis := range byAnalyzer {
		copied[name] = analysis
	}
	return copied
}

// AddSummary inserts or overwrites the summary item with the same
// code. First insertion fixes the position.
func (s *Store) AddSummary(item SummaryItem) {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()

	if _, exists := s.summaryItems[item.Code]; !exists {
		s.summaryOrder = append(s.summaryOrder, item.Code)
	}
	s.summaryItems[item.Code] = item
}

// Summary snapshots the summary in insertion order.
func (s *Store) Summary() []SummaryItem {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()

	items := make([]SummaryItem, 0, len(s.summaryOrder))
	for _, code := range s.summaryOrder {
		items = append(items, s.summaryItems[code])
	}
	return items
}

// SummaryCounts tallies summary items per status.
func (s *Store) SummaryCounts() map[Status]int {
	counts := make(map[Status]int)
	for _, item := range s.Summary() {
		counts[item.Status]++
	}
	return counts
}

// PrependTable puts a SuperTable ahead of the ones already collected.
func (s *Store) PrependTable(table SuperTable) {
	s.tablesMu.Lock()
	defer s.tablesMu.Unlock()
	s.tables = append([]SuperTable{table}, s.tables...)
}

// AppendTable adds a SuperTable after the ones already collected.
func (s *Store) AppendTable(table SuperTable) {
	s.tablesMu.Lock()
	defer s.tablesMu.Unlock()
	s.tables = append(s.tables, table)
}

// Tables snapshots the collected SuperTables.
func (s *Store) Tables() []SuperTable {
	s.tablesMu.RLock()
	defer s.tablesMu.RUnlock()
	return append([]SuperTable(nil), s.tables...)
}

// TableByCode finds one SuperTable.
func (s *Store) TableByCode(code string) (SuperTable, bool) {
	s.tablesMu.RLock()
	defer s.tablesMu.RUnlock()
	for _, table := range s.tables {
		if table.Code == code {
			return table, true
		}
	}
	return SuperTable{}, false
}

// RecordSkip appends one scope/policy rejection to the skipped-URL log.
func (s *Store) RecordSkip(skip resource.SkippedURL) {
	s.skipMu.Lock()
	defer s.skipMu.Unlock()
	s.skipped = append(s.skipped, skip)
}

// Skipped snapshots the skipped-URL log.
func (s *Store) Skipped() []resource.SkippedURL {
	s.skipMu.Lock()
	defer s.skipMu.Unlock()
	return append([]resource.SkippedURL(nil), s.skipped...)
}
