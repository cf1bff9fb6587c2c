package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders dot-separated version strings by their integer
// components, so 4.9 < 4.10 and 25.3 < 25.10. A shorter prefix sorts first.
// Components that are not integers, and ties, fall back to string order.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
			continue
		}
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	if len(as) != len(bs) {
		if len(as) < len(bs) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortVersions returns a sorted copy of versions in ascending order.
func SortVersions(versions []string) []string {
	out := append([]string(nil), versions...)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) < 0
	})
	return out
}

// LatestVersions returns the n highest versions in ascending order.
func LatestVersions(versions []string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", n)
	}
	sorted := SortVersions(versions)
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted, nil
}

// EarliestVersions returns the n lowest versions in ascending order.
func EarliestVersions(versions []string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", n)
	}
	sorted := SortVersions(versions)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// MaxVersion returns the higher of two exact versions. An unparsable
// version loses against a parsable one.
func MaxVersion(a, b string) string {
	av, aerr := semver.StrictNewVersion(a)
	bv, berr := semver.StrictNewVersion(b)
	switch {
	case aerr != nil && berr != nil:
		if CompareVersions(a, b) >= 0 {
			return a
		}
		return b
	case aerr != nil:
		return b
	case berr != nil:
		return a
	}
	if av.LessThan(bv) {
		return b
	}
	return a
}

// IsExactVersion reports whether v is a fully resolved X.Y.Z version.
// A trailing parenthesized annotation such as "(bundle)" is ignored.
func IsExactVersion(v string) bool {
	_, err := semver.StrictNewVersion(StripAnnotation(v))
	return err == nil
}

// StripAnnotation removes a trailing " (...)" note from a version string.
func StripAnnotation(v string) string {
	if i := strings.Index(v, "("); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// MinorOf returns the major.minor prefix of a version, e.g. 4.19 for 4.19.7.
func MinorOf(v string) string {
	parts := strings.SplitN(StripAnnotation(v), ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}
