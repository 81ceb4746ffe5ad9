package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
)

// link rels whose href is a fetchable resource
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var fetchableLinkRels = map[string]struct{}{
	"stylesheet":     {},
	"icon":           {},
	"shortcut icon":  {},
	"apple-touch-icon": {},
	"preload":        {},
	"prefetch":       {},
	"alternate":      {},
	"canonical":      {},
}

func (e *ContentExtractor) extractHTML(result *ExtractionResult, visited resource.VisitedURL, body []byte, depth int) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// x/net/html recovers from almost anything; reaching this
		// means the reader itself failed
		result.ParseNotice = "html parse failed, extraction skipped: " + err.Error()
		return
	}
	result.Doc = doc

	base := visited.URL
	if baseHref, exists := doc.Find("base[href]").First().Attr("href"); exists {
		if resolved, ok := urlutil.Resolve(visited.URL, baseHref); ok {
			base = resolved
		}
	}

	emit := func(ref string, attr resource.SourceAttr) {
		if resolved, ok := resolveRef(base, ref); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, attr, depth))
		}
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		emit(sel.AttrOr("href", ""), resource.SourceAHref)
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, exists := sel.Attr("src"); exists {
			emit(src, resource.SourceImgSrc)
		}
		if srcset, exists := sel.Attr("srcset"); exists {
			for _, candidate := range parseSrcset(srcset) {
				emit(candidate, resource.SourceImgSrcset)
			}
		}
	})

	doc.Find("source").Each(func(_ int, sel *goquery.Selection) {
		if src, exists := sel.Attr("src"); exists {
			emit(src, resource.SourceSourceSrc)
		}
		if srcset, exists := sel.Attr("srcset"); exists {
			for _, candidate := range parseSrcset(srcset) {
				emit(candidate, resource.SourceImgSrcset)
			}
		}
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		emit(sel.AttrOr("src", ""), resource.SourceScriptSrc)
	})

	doc.Find("input[src]").Each(func(_ int, sel *goquery.Selection) {
		emit(sel.AttrOr("src", ""), resource.SourceInputSrc)
	})

	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		rel := strings.ToLower(strings.TrimSpace(sel.AttrOr("rel", "")))
		if rel == "manifest" {
			emit(sel.AttrOr("href", ""), resource.SourceManifest)
			return
		}
		if _, fetchable := fetchableLinkRels[rel]; fetchable {
			emit(sel.AttrOr("href", ""), resource.SourceLinkHref)
		}
	})

	doc.Find(`meta[http-equiv]`).Each(func(_ int, sel *goquery.Selection) {
		if !strings.EqualFold(sel.AttrOr("http-equiv", ""), "refresh") {
			return
		}
		if target := parseMetaRefresh(sel.AttrOr("content", "")); target != "" {
			emit(target, resource.SourceMetaRedirect)
		}
	})

	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		for _, ref := range cssURLRefs(sel.Text()) {
			emit(ref, resource.SourceCSSUrl)
		}
	})

	// form targets are recorded for reporting only; the engine drops
	// OTHER-tagged discoveries before admission
	doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		emit(sel.AttrOr("action", ""), resource.SourceOther)
	})

	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, sel *goquery.Selection) {
		emit(sel.AttrOr("content", ""), resource.SourceOther)
	})

	result.setExtra(resource.ExtraTitle, strings.TrimSpace(doc.Find("title").First().Text()))
	if description, exists := doc.Find(`meta[name="description"]`).First().Attr("content"); exists {
		result.setExtra(resource.ExtraDescription, strings.TrimSpace(description))
	}
	result.setExtra(resource.ExtraH1, strings.TrimSpace(doc.Find("h1").First().Text()))
}

// parseSrcset splits a srcset value into bare URLs, dropping the
// width/density descriptors.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) > 0 && fields[0] != "" {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

// parseMetaRefresh pulls the url= target out of a refresh directive
// like "5; url=/next".
func parseMetaRefresh(content string) string {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if len(part) > 4 && strings.EqualFold(part[:4], "url=") {
			return strings.Trim(strings.TrimSpace(part[4:]), `'"`)
		}
	}
	return ""
}

// resolveRef resolves a document reference, rejecting pseudo-scheme
// and fragment-only links.
func resolveRef(base url.URL, ref string) (url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return url.URL{}, false
	}
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:", "about:"} {
		if strings.HasPrefix(lower, scheme) {
			return url.URL{}, false
		}
	}
	return urlutil.Resolve(base, ref)
}
