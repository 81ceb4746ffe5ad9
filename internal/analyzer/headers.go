package analyzer

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// values kept per header before further ones are only counted
const maxUniqueHeaderValues = 20

// noisy headers: occurrences are counted, values never kept
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var noisyHeaders = map[string]struct{}{
	"etag":                {},
	"cf-ray":              {},
	"set-cookie":          {},
	"content-disposition": {},
}

//nolint:gochecknoglobals // This is a static lookup table that must be global
var (
	dateTypedHeaders    = map[string]struct{}{"date": {}, "expires": {}, "last-modified": {}}
	numericTypedHeaders = map[string]struct{}{"content-length": {}, "age": {}}
)

type headerStat struct {
	occurrences  int
	uniqueValues map[string]struct{}
	minDate      *time.Time
	maxDate      *time.Time
	minNumber    *int64
	maxNumber    *int64
}

// HeadersAnalyzer aggregates response-header usage across the crawl.
type HeadersAnalyzer struct {
	baseAnalyzer
	mu    sync.Mutex
	stats map[string]*headerStat
}

func NewHeadersAnalyzer() *HeadersAnalyzer {
	return &HeadersAnalyzer{
		baseAnalyzer: baseAnalyzer{name: NameHeaders, order: 10},
		stats:        make(map[string]*headerStat),
	}
}

func (a *HeadersAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	if headers == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for name, values := range headers {
		lower := strings.ToLower(name)
		stat, exists := a.stats[lower]
		if !exists {
			stat = &headerStat{uniqueValues: make(map[string]struct{})}
			a.stats[lower] = stat
		}

		for _, value := range values {
			stat.occurrences++

			if _, noisy := noisyHeaders[lower]; !noisy && len(stat.uniqueValues) < maxUniqueHeaderValues {
				stat.uniqueValues[value] = struct{}{}
			}

			if _, isDate := dateTypedHeaders[lower]; isDate {
				if parsed, err := http.ParseTime(value); err == nil {
					if stat.minDate == nil || parsed.Before(*stat.minDate) {
						stat.minDate = &parsed
					}
					if stat.maxDate == nil || parsed.After(*stat.maxDate) {
						stat.maxDate = &parsed
					}
				}
			}
			if _, isNumeric := numericTypedHeaders[lower]; isNumeric {
				if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
					if stat.minNumber == nil || parsed < *stat.minNumber {
						stat.minNumber = &parsed
					}
					if stat.maxNumber == nil || parsed > *stat.maxNumber {
						stat.maxNumber = &parsed
					}
				}
			}
		}
	}
	return nil
}

func (a *HeadersAnalyzer) Finalize(st *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.stats))
	for name := range a.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]map[string]any, 0, len(names))
	for _, name := range names {
		stat := a.stats[name]
		row := map[string]any{
			"header":      name,
			"occurrences": stat.occurrences,
			"uniqueCount": len(stat.uniqueValues),
			"values":      sortedValues(stat.uniqueValues),
		}
		if stat.minDate != nil {
			row["minDate"] = stat.minDate.UTC().Format(time.RFC3339)
			row["maxDate"] = stat.maxDate.UTC().Format(time.RFC3339)
		}
		if stat.minNumber != nil {
			row["minValue"] = *stat.minNumber
			row["maxValue"] = *stat.maxNumber
		}
		rows = append(rows, row)
	}

	st.AppendTable(store.SuperTable{
		Code:  "headers",
		Title: "Response headers",
		Columns: []store.Column{
			{Key: "header", Label: "Header"},
			{Key: "occurrences", Label: "Occurrences"},
			{Key: "uniqueCount", Label: "Unique values"},
			{Key: "values", Label: "Values"},
		},
		Rows:    rows,
		SortKey: "occurrences",
		SortDir: store.SortDesc,
	})
}

// UniqueValuesOf exposes the kept values of one header, sorted.
func (a *HeadersAnalyzer) UniqueValuesOf(header string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	stat, exists := a.stats[strings.ToLower(header)]
	if !exists {
		return nil
	}
	return sortedValues(stat.uniqueValues)
}

func sortedValues(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
