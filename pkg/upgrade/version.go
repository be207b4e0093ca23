package upgrade

import (
	"strconv"
	"strings"
)

// Version is a dotted version string, e.g. "5.14.2" or "5.14.2-beta.1".
// Comparison follows the NSFS upgrade algorithm exactly: split on '.',
// strip any pre-release suffix from the last numeric component, parse
// each component as an integer (non-numeric or missing components count
// as 0), and compare lexicographically component by component.
type Version string

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater
// than other.
func (v Version) Compare(other Version) int {
	a := splitVersion(string(v))
	b := splitVersion(string(other))

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// LessThan reports whether v < other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v == other under version comparison (not string
// equality — "5.14" and "5.14.0" compare equal).
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func splitVersion(s string) []int {
	// Strip a pre-release suffix like "-beta.1" or "-rc1" before splitting,
	// since the suffix itself may contain dots.
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		s = s[:idx]
	}
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			out[i] = 0
			continue
		}
		out[i] = n
	}
	return out
}
