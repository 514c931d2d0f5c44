package domain

import (
	"strconv"
	"strings"
)

// CompareVersions compares two dot-separated version strings and returns -1, 0 or +1.
// Segments that are absent or do not parse as non-negative integers count as 0, so the
// function is total: "1.2" equals "1.2.0" and two malformed inputs compare equal.
func CompareVersions(a, b string) int {
	as, bs := versionSegments(a), versionSegments(b)
	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		x, y := segmentAt(as, i), segmentAt(bs, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// IsNewerVersion reports whether candidate compares strictly greater than current.
func IsNewerVersion(candidate, current string) bool {
	return CompareVersions(candidate, current) > 0
}

func versionSegments(v string) []uint64 {
	parts := strings.Split(v, ".")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		if n, err := strconv.ParseUint(p, 10, 64); err == nil {
			out[i] = n
		}
	}
	return out
}

func segmentAt(segs []uint64, i int) uint64 {
	if i < len(segs) {
		return segs[i]
	}
	return 0
}
