package resource

import "strings"

// ClassifyContentType maps a Content-Type header value onto the coarse
// ContentType enum. Redirect classification happens at the fetcher from
// the status code, not here.
func ClassifyContentType(header string) ContentType {
	mime := strings.ToLower(strings.TrimSpace(header))
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "" {
		return ContentOther
	}

	switch {
	case strings.HasPrefix(mime, "text/html"), mime == "application/xhtml+xml":
		return ContentHTML
	case mime == "text/css":
		return ContentStylesheet
	case strings.Contains(mime, "javascript"),
		strings.Contains(mime, "ecmascript"),
		mime == "text/jsx":
		return ContentScript
	case strings.HasPrefix(mime, "image/"):
		return ContentImage
	case strings.HasPrefix(mime, "font/"),
		mime == "application/vnd.ms-fontobject",
		strings.Contains(mime, "font-woff"):
		return ContentFont
	case mime == "application/json":
		return ContentJSON
	case strings.HasPrefix(mime, "application/") && strings.HasSuffix(mime, "xml"),
		mime == "text/xml":
		return ContentXML
	case strings.HasPrefix(mime, "audio/"):
		return ContentAudio
	case strings.HasPrefix(mime, "video/"):
		return ContentVideo
	case mime == "application/pdf",
		strings.Contains(mime, "msword"),
		strings.Contains(mime, "officedocument"),
		strings.Contains(mime, "zip"),
		strings.Contains(mime, "tar"),
		strings.Contains(mime, "compressed"):
		return ContentDocument
	default:
		return ContentOther
	}
}
