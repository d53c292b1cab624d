// Package tree holds the pure parts of topic hierarchy maintenance: how a
// materialized path is derived and matched, and how sibling positions are
// planned. The store applies these plans inside a transaction.
package tree

import "strings"

// Separator joins slugs in a materialized path.
const Separator = "/"

// NormalizeSlug trims and lower-cases a slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ComputePath returns slug for roots, or the parent's path joined with slug.
// An empty parentPath (parent not yet materialized) degrades to the slug alone.
func ComputePath(slug, parentPath string) string {
	if parentPath == "" {
		return slug
	}
	return parentPath + Separator + slug
}

// DescendantPrefix is the prefix every descendant of path starts with.
func DescendantPrefix(path string) string {
	return path + Separator
}

// IsWithin reports whether candidate is path itself or one of its descendants.
func IsWithin(candidate, path string) bool {
	if path == "" {
		return false
	}
	return candidate == path || strings.HasPrefix(candidate, DescendantPrefix(path))
}

// SplitPath breaks a request path into normalized slug segments, dropping
// empty ones.
func SplitPath(path string) []string {
	parts := strings.Split(path, Separator)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := NormalizeSlug(part)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// LikePrefix escapes LIKE wildcards in prefix and appends the match-all suffix.
func LikePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}
