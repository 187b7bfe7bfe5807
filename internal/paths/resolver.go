// Package paths translates page-image paths recorded on a foreign machine
// into locally valid paths. Datasets are annotated on developer hosts and
// consumed inside containers, so absolute paths routinely point at
// filesystems that do not exist where the experiment runs.
package paths

import (
	"os"
	"strings"
)

// DefaultMarkers are the canonical directory names whose first occurrence in
// a path marks the start of the project-relative suffix.
var DefaultMarkers = []string{"assets", "datasets"}

// Resolver rewrites foreign paths against an ordered list of candidate roots.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	roots   []string
	markers []string
	exists  func(string) bool
}

// NewResolver builds a resolver that tries the given roots in order.
// A typical container configuration is NewResolver([]string{"/app"}).
// Passing no roots still yields a usable resolver that falls back to the
// original path and the CWD-relative suffix.
func NewResolver(roots []string) *Resolver {
	return &Resolver{
		roots:   append([]string(nil), roots...),
		markers: DefaultMarkers,
		exists:  fileExists,
	}
}

// WithMarkers overrides the marker segments used to locate the
// project-relative suffix. Returns the resolver for chaining.
func (r *Resolver) WithMarkers(markers ...string) *Resolver {
	r.markers = append([]string(nil), markers...)
	return r
}

// Resolve returns the first existing candidate for the given path:
//
//  1. each configured root joined with the marker-relative suffix,
//  2. the path exactly as given, then with separators normalized,
//  3. the bare suffix relative to the current working directory.
//
// When nothing exists the original path is returned unchanged; absence is a
// deferred failure the caller decides how to treat. Both '/' and '\'
// separators and multibyte path segments are handled.
func (r *Resolver) Resolve(path string) string {
	if path == "" {
		return path
	}

	suffix := r.relativeSuffix(path)

	var candidates []string
	if suffix != "" {
		for _, root := range r.roots {
			candidates = append(candidates, strings.TrimRight(root, "/")+"/"+suffix)
		}
	}
	candidates = append(candidates, path)
	if normalized := normalizeSeparators(path); normalized != path {
		candidates = append(candidates, normalized)
	}
	if suffix != "" {
		candidates = append(candidates, suffix)
	}

	for _, candidate := range candidates {
		if r.exists(candidate) {
			return candidate
		}
	}
	return path
}

// relativeSuffix extracts the marker-rooted suffix from a possibly foreign
// path, e.g. "C:\data\assets\ec\page1.jpg" -> "assets/ec/page1.jpg".
// Returns "" when no marker segment is present.
func (r *Resolver) relativeSuffix(path string) string {
	segments := strings.FieldsFunc(normalizeSeparators(path), func(c rune) bool {
		return c == '/'
	})
	for i, seg := range segments {
		for _, marker := range r.markers {
			if seg == marker {
				return strings.Join(segments[i:], "/")
			}
		}
	}
	return ""
}

// normalizeSeparators rewrites Windows-style separators. Backslash is never a
// legitimate character in dataset page paths, so a blanket replace is safe
// even for multibyte filenames (UTF-8 never encodes '\' inside a rune).
func normalizeSeparators(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
