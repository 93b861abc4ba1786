package versioning

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Number is the (major, minor, patch) triple identifying a dataset version.
// Ordering by the triple, major most significant, defines recency.
type Number struct {
	Major int `json:"major" yaml:"major"`
	Minor int `json:"minor" yaml:"minor"`
	Patch int `json:"patch" yaml:"patch"`
}

// NewNumber builds a Number. Negative components are rejected.
func NewNumber(major, minor, patch int) (Number, error) {
	if major < 0 || minor < 0 || patch < 0 {
		return Number{}, fmt.Errorf("invalid version %d.%d.%d: components must be non-negative", major, minor, patch)
	}
	return Number{Major: major, Minor: minor, Patch: patch}, nil
}

// MustNumber builds a Number or panics. Use only for constants and tests.
func MustNumber(major, minor, patch int) Number {
	n, err := NewNumber(major, minor, patch)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNumber parses a concrete version such as "1.2.3" or "v1.2".
// Missing minor or patch components default to zero. Wildcards are not
// accepted; use Parse for patterns.
func ParseNumber(s string) (Number, error) {
	p, err := Parse(s)
	if err != nil {
		return Number{}, err
	}
	if p.HasWildcard {
		return Number{}, &ParseError{Token: s, Message: "wildcards are not allowed in a concrete version"}
	}
	return Number{
		Major: p.Major.valueOr(0),
		Minor: p.Minor.valueOr(0),
		Patch: p.Patch.valueOr(0),
	}, nil
}

// String returns the canonical "major.minor.patch" form.
func (n Number) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(n.Major))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(n.Minor))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(n.Patch))
	return b.String()
}

// Compare returns -1 if n < other, 0 if equal, 1 if n > other.
func (n Number) Compare(other Number) int {
	if c := cmp.Compare(n.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(n.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(n.Patch, other.Patch)
}

// Less reports whether n is older than other.
func (n Number) Less(other Number) bool {
	return n.Compare(other) < 0
}

// NextMajor returns the first version of the next major series.
func (n Number) NextMajor() Number {
	return Number{Major: n.Major + 1}
}

// NextMinor returns the next minor version within the same major series.
func (n Number) NextMinor() Number {
	return Number{Major: n.Major, Minor: n.Minor + 1}
}
