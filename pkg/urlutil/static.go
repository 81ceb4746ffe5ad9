package urlutil

import (
	"net/url"
	"strings"
)

// staticExtensions is the fixed set of file extensions treated as
// static resources: images, fonts, stylesheets, scripts, documents,
// archives, and media.
//
//nolint:gochecknoglobals // This is a static lookup table that must be global
var staticExtensions = map[string]struct{}{
	// images
	"avif": {}, "apng": {}, "bmp": {}, "gif": {}, "ico": {}, "jpg": {},
	"jpeg": {}, "png": {}, "svg": {}, "tif": {}, "tiff": {}, "webp": {},
	"heic": {},
	// fonts
	"woff": {}, "woff2": {}, "ttf": {}, "otf": {}, "eot": {},
	// styles and scripts
	"css": {}, "js": {}, "mjs": {},
	// documents and archives
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {},
	"pptx": {}, "zip": {}, "tar": {}, "gz": {}, "7z": {}, "rar": {},
	// audio
	"mp3": {}, "ogg": {}, "wav": {}, "flac": {},
	// video
	"mp4": {}, "webm": {}, "mkv": {}, "mov": {}, "avi": {},
	// data
	"xml": {}, "json": {}, "txt": {}, "csv": {},
}

// IsStaticFile reports whether the last path segment of the URL carries
// an extension from the static set.
func IsStaticFile(sourceUrl url.URL) bool {
	return IsStaticPath(sourceUrl.Path)
}

// IsStaticPath is IsStaticFile on a bare path string.
func IsStaticPath(p string) bool {
	segment := p
	if idx := strings.LastIndex(segment, "/"); idx != -1 {
		segment = segment[idx+1:]
	}
	dot := strings.LastIndex(segment, ".")
	if dot == -1 || dot == len(segment)-1 {
		return false
	}
	ext := strings.ToLower(segment[dot+1:])
	_, ok := staticExtensions[ext]
	return ok
}
