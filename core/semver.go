package core

import "strconv"
import "strings"

// Version is a parsed major.minor.patch release tag.
type Version [3]int

// ParseVersion parses tags like v1.2.3, 1.2.3 or v1.2.3-beta into a Version.
// The leading "v" and any "-suffix" are discarded. Tags without exactly
// three numeric components are reported as not ok; callers treat those as
// non-comparable rather than guessing an ordering.
func ParseVersion(tag string) (Version, bool) {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "v")
	tag, _, _ = strings.Cut(tag, "-")

	parts := strings.Split(tag, ".")
	if len(parts) != 3 {
		return Version{}, false
	}

	var out Version
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, false
		}
		out[i] = n
	}
	return out, true
}

// Newer reports whether v is strictly newer than other.
func (v Version) Newer(other Version) bool {
	for i := 0; i < 3; i++ {
		if v[i] > other[i] {
			return true
		}
		if v[i] < other[i] {
			return false
		}
	}
	return false
}

// String renders the version with the conventional "v" prefix.
func (v Version) String() string {
	return "v" + strconv.Itoa(v[0]) + "." + strconv.Itoa(v[1]) + "." + strconv.Itoa(v[2])
}

// NormalizeTag adds the "v" prefix to bare semver strings so that stored
// and displayed tags have one shape. Non-semver strings pass through.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.HasPrefix(tag, "v") {
		return tag
	}
	if _, ok := ParseVersion(tag); ok {
		return "v" + tag
	}
	return tag
}
