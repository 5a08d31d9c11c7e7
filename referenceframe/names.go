package referenceframe

import "strings"

// PathSeparator is stripped from the front of frame names, so "map" and "/map" name the same frame.
const PathSeparator = "/"

// NormalizeName returns the canonical key for a frame name. Frame names are case-sensitive.
func NormalizeName(name string) string {
	return strings.TrimLeft(name, PathSeparator)
}
