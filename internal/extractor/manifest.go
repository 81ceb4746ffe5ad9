package extractor

import (
	"encoding/json"

	"github.com/rohmanhakim/site-auditor/internal/resource"
)

type webManifest struct {
	StartURL string `json:"start_url"`
	Icons    []struct {
		Src string `json:"src"`
	} `json:"icons"`
}

func (e *ContentExtractor) extractManifest(result *ExtractionResult, visited resource.VisitedURL, body []byte, depth int) {
	var manifest webManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		// arbitrary JSON responses are expected; only real manifests
		// produce candidates
		return
	}

	if manifest.StartURL != "" {
		if resolved, ok := resolveRef(visited.URL, manifest.StartURL); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceManifest, depth))
		}
	}
	for _, icon := range manifest.Icons {
		if resolved, ok := resolveRef(visited.URL, icon.Src); ok {
			result.addFound(resource.NewFoundURL(resolved, visited.Fingerprint, resource.SourceManifest, depth))
		}
	}
}
