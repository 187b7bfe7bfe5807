package transport

import (
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// CleanJSONResponse applies minimal transport-level fixes to a raw model
// response before schema validation: markdown code fences are removed,
// surrounding prose outside the outermost JSON value is dropped, and
// trailing commas are deleted. Anything beyond these fixes is a schema
// violation for the caller to surface, never to coerce.
func CleanJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Models occasionally wrap the JSON in prose; keep the outermost object.
	if start := strings.Index(s, "{"); start > 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return trailingCommaRe.ReplaceAllString(s, "$1")
}
