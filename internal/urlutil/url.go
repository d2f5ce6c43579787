// Package urlutil normalizes user-supplied asset links (avatars, covers)
// before they are displayed.
package urlutil

import (
	"regexp"
	"strings"
)

var (
	schemeRe = regexp.MustCompile(`(?i)^(https?:)?//`)
	dataRe   = regexp.MustCompile(`(?i)^data:`)
)

// NormalizeAssetURL trims url and fills in a missing protocol. Blank input
// yields "". Links that already carry http(s), are protocol-relative, are
// data: URIs, or are absolute paths are returned trimmed but otherwise
// unchanged; everything else gets "https://" prepended.
func NormalizeAssetURL(url string) string {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return ""
	}
	if schemeRe.MatchString(trimmed) || dataRe.MatchString(trimmed) {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}
	return "https://" + trimmed
}
