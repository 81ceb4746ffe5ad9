package analyzer

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/internal/store"
)

// headingNode is one entry of the per-page heading tree.
type headingNode struct {
	Level    int           `json:"level"`
	Text     string        `json:"text"`
	Error    string        `json:"error,omitempty"`
	Children []headingNode `json:"children,omitempty"`
}

type seoRow struct {
	url          string
	title        string
	description  string
	keywords     string
	h1           string
	robotsMeta   string
	ogTags       int
	twitterTags  int
	headingTree  []headingNode
	headingError bool
}

// SeoAndOpenGraphAnalyzer collects the SEO surface of every HTML page:
// title, meta description/keywords, H1, Open Graph and Twitter tags,
// robots directives, and a heading tree annotated with structural
// errors.
type SeoAndOpenGraphAnalyzer struct {
	baseAnalyzer
	maxHeadingLevel int

	mu   sync.Mutex
	rows []seoRow
}

func NewSeoAndOpenGraphAnalyzer() *SeoAndOpenGraphAnalyzer {
	return &SeoAndOpenGraphAnalyzer{
		baseAnalyzer:    baseAnalyzer{name: NameSeo, order: 90},
		maxHeadingLevel: config.DefaultMaxHeadingLevel,
	}
}

// Configure reads maxHeadingLevel.
func (a *SeoAndOpenGraphAnalyzer) Configure(cfg config.Config) {
	a.maxHeadingLevel = cfg.MaxHeadingLevel()
}

func (a *SeoAndOpenGraphAnalyzer) OnFetched(visited resource.VisitedURL, body []byte, doc *goquery.Document, headers http.Header) *store.URLAnalysis {
	if visited.ContentType != resource.ContentHTML || !visited.IsSuccess() || doc == nil {
		return nil
	}

	row := seoRow{
		url:         visited.URL.String(),
		title:       strings.TrimSpace(doc.Find("title").First().Text()),
		description: doc.Find(`meta[name="description"]`).First().AttrOr("content", ""),
		keywords:    doc.Find(`meta[name="keywords"]`).First().AttrOr("content", ""),
		h1:          strings.TrimSpace(doc.Find("h1").First().Text()),
		robotsMeta:  doc.Find(`meta[name="robots"]`).First().AttrOr("content", ""),
	}
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, sel *goquery.Selection) { row.ogTags++ })
	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, sel *goquery.Selection) { row.twitterTags++ })
	row.headingTree, row.headingError = a.buildHeadingTree(doc)

	a.mu.Lock()
	a.rows = append(a.rows, row)
	a.mu.Unlock()

	analysis := &store.URLAnalysis{}
	if row.title == "" {
		analysis.Add(store.StatusWarning, store.Finding{Message: "page has no <title>", Analysis: NameSeo})
	}
	if row.description == "" {
		analysis.Add(store.StatusNotice, store.Finding{Message: "page has no meta description", Analysis: NameSeo})
	}
	if row.h1 == "" {
		analysis.Add(store.StatusNotice, store.Finding{Message: "page has no <h1>", Analysis: NameSeo})
	}
	if strings.Contains(strings.ToLower(row.robotsMeta), "noindex") {
		analysis.Add(store.StatusNotice, store.Finding{
			Message: "page is excluded from indexing via robots meta", Analysis: NameSeo,
		})
	}
	if row.ogTags == 0 {
		analysis.Add(store.StatusNotice, store.Finding{Message: "page has no Open Graph tags", Analysis: NameSeo})
	}
	if row.headingError {
		analysis.Add(store.StatusNotice, store.Finding{Message: "heading structure has skipped levels", Analysis: NameSeo})
	}

	if analysis.IsEmpty() {
		return nil
	}
	return analysis
}

// buildHeadingTree nests headings up to the configured level and marks
// entries that skip a level.
func (a *SeoAndOpenGraphAnalyzer) buildHeadingTree(doc *goquery.Document) ([]headingNode, bool) {
	var flat []headingNode
	hadError := false
	previousLevel := 0

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		level, _ := strconv.Atoi(goquery.NodeName(sel)[1:])
		if level > a.maxHeadingLevel {
			return
		}
		node := headingNode{Level: level, Text: strings.TrimSpace(sel.Text())}
		if previousLevel > 0 && level > previousLevel+1 {
			node.Error = fmt.Sprintf("skips from h%d to h%d", previousLevel, level)
			hadError = true
		}
		previousLevel = level
		flat = append(flat, node)
	})

	return nestHeadings(flat), hadError
}

// nestHeadings folds a flat heading sequence into a tree by level.
func nestHeadings(flat []headingNode) []headingNode {
	var roots []headingNode
	var stack []*headingNode

	for _, node := range flat {
		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
			stack = append(stack, &roots[len(roots)-1])
			continue
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stack = append(stack, &parent.Children[len(parent.Children)-1])
	}
	return roots
}

func (a *SeoAndOpenGraphAnalyzer) Finalize(st *store.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows := make([]map[string]any, 0, len(a.rows))
	missingTitles := 0
	for _, row := range a.rows {
		if row.title == "" {
			missingTitles++
		}
		rows = append(rows, map[string]any{
			"url":         row.url,
			"title":       row.title,
			"description": row.description,
			"keywords":    row.keywords,
			"h1":          row.h1,
			"robotsMeta":  row.robotsMeta,
			"ogTags":      row.ogTags,
			"twitterTags": row.twitterTags,
			"headings":    row.headingTree,
		})
	}

	st.AppendTable(store.SuperTable{
		Code:  "seo",
		Title: "SEO and Open Graph",
		Columns: []store.Column{
			{Key: "url", Label: "URL"},
			{Key: "title", Label: "Title"},
			{Key: "description", Label: "Description"},
			{Key: "h1", Label: "H1"},
			{Key: "robotsMeta", Label: "Robots"},
			{Key: "ogTags", Label: "OG tags"},
			{Key: "twitterTags", Label: "Twitter tags"},
		},
		Rows:    rows,
		SortKey: "url",
		SortDir: store.SortAsc,
	})

	if missingTitles > 0 {
		st.AddSummary(store.SummaryItem{
			Code:    NameSeo,
			Message: fmt.Sprintf("%d of %d pages have no title", missingTitles, len(a.rows)),
			Status:  store.StatusWarning,
		})
		return
	}
	if len(a.rows) > 0 {
		st.AddSummary(store.SummaryItem{
			Code:    NameSeo,
			Message: fmt.Sprintf("all %d pages carry a title", len(a.rows)),
			Status:  store.StatusOk,
		})
	}
}
