package symcc

import (
	"sort"
	"strconv"
	"strings"
)

// DependencySet is the sorted set of input offsets an expression depends on.
// The zero value is the empty set. Sets are never mutated once built.
type DependencySet []uint64

// NewDependencySet returns a set containing the given offsets.
func NewDependencySet(offsets ...uint64) DependencySet {
	if len(offsets) == 0 {
		return nil
	}
	a := make(DependencySet, len(offsets))
	copy(a, offsets)
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })

	// Remove duplicates in place.
	n := 1
	for i := 1; i < len(a); i++ {
		if a[i] != a[n-1] {
			a[n] = a[i]
			n++
		}
	}
	return a[:n]
}

// Len returns the number of offsets in the set.
func (s DependencySet) Len() int { return len(s) }

// Contains returns true if offset is a member of s.
func (s DependencySet) Contains(offset uint64) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= offset })
	return i < len(s) && s[i] == offset
}

// Includes returns true if every member of other is a member of s.
func (s DependencySet) Includes(other DependencySet) bool {
	if len(other) > len(s) {
		return false
	}
	i := 0
	for _, v := range other {
		for i < len(s) && s[i] < v {
			i++
		}
		if i == len(s) || s[i] != v {
			return false
		}
		i++
	}
	return true
}

// SubsetOf returns true if s is a subset of other.
func (s DependencySet) SubsetOf(other DependencySet) bool {
	return other.Includes(s)
}

// Intersects returns true if s and other share at least one offset.
func (s DependencySet) Intersects(other DependencySet) bool {
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			return true
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Union returns a new set holding the members of both s and other.
// Returns s or other unchanged when one includes the other.
func (s DependencySet) Union(other DependencySet) DependencySet {
	if len(other) == 0 || s.Includes(other) {
		return s
	} else if len(s) == 0 || other.Includes(s) {
		return other
	}

	a := make(DependencySet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			a = append(a, s[i])
			i, j = i+1, j+1
		case s[i] < other[j]:
			a = append(a, s[i])
			i++
		default:
			a = append(a, other[j])
			j++
		}
	}
	a = append(a, s[i:]...)
	return append(a, other[j:]...)
}

// String returns the set formatted as "{1 2 3}".
func (s DependencySet) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strconv.FormatUint(v, 10))
	}
	buf.WriteByte('}')
	return buf.String()
}
