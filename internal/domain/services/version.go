package services

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NormalizeVersion strips whitespace and a leading v/V from a release tag.
func NormalizeVersion(tag string) string {
	trimmed := strings.TrimSpace(tag)
	if len(trimmed) > 1 && (trimmed[0] == 'v' || trimmed[0] == 'V') {
		return trimmed[1:]
	}
	return trimmed
}

// CompareVersions orders two release version strings, returning -1, 0,
// or 1. Both are compared as semver when they parse; tags that don't
// (SWS uses four-segment versions like 2.14.0.3) fall back to a numeric
// dotted comparison.
func CompareVersions(a, b string) int {
	na, nb := NormalizeVersion(a), NormalizeVersion(b)

	va, errA := semver.NewVersion(na)
	vb, errB := semver.NewVersion(nb)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareDotted(na, nb)
}

// IsNewer reports whether candidate is strictly newer than installed.
func IsNewer(candidate, installed string) bool {
	return CompareVersions(candidate, installed) > 0
}

func compareDotted(a, b string) int {
	segsA := strings.Split(a, ".")
	segsB := strings.Split(b, ".")
	n := len(segsA)
	if len(segsB) > n {
		n = len(segsB)
	}
	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(segsA) {
			sa = segsA[i]
		}
		if i < len(segsB) {
			sb = segsB[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b string) int {
	// A missing segment counts as zero, so 2.14 == 2.14.0.
	ia, errA := strconv.Atoi(zeroIfEmpty(a))
	ib, errB := strconv.Atoi(zeroIfEmpty(b))
	if errA == nil && errB == nil {
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
