package versioning

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxSegments is the number of components in a full version (major.minor.patch).
const maxSegments = 3

// ErrMalformedToken is matched by every error Parse returns.
var ErrMalformedToken = errors.New("malformed version token")

// ParseError describes why a version token could not be parsed.
type ParseError struct {
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad version token %q: %s", e.Token, e.Message)
}

// Is reports ErrMalformedToken so callers can use errors.Is.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedToken
}

type componentKind uint8

const (
	componentAbsent componentKind = iota
	componentExact
	componentWildcard
)

// Component is one slot of a Pattern: an exact value, a wildcard, or absent.
// Wildcard and absent slots are both unconstrained when matching.
type Component struct {
	kind  componentKind
	value int
}

// Exact returns a component that only matches v.
func Exact(v int) Component {
	return Component{kind: componentExact, value: v}
}

// Wildcard returns a component that matches any value.
func Wildcard() Component {
	return Component{kind: componentWildcard}
}

// IsExact reports whether the component constrains its slot.
func (c Component) IsExact() bool { return c.kind == componentExact }

// IsWildcard reports whether the component was given as "*".
func (c Component) IsWildcard() bool { return c.kind == componentWildcard }

// IsAbsent reports whether the token stopped before this slot.
func (c Component) IsAbsent() bool { return c.kind == componentAbsent }

// Value returns the exact value, if any.
func (c Component) Value() (int, bool) {
	return c.value, c.kind == componentExact
}

func (c Component) matches(v int) bool {
	return c.kind != componentExact || c.value == v
}

func (c Component) valueOr(def int) int {
	if c.kind == componentExact {
		return c.value
	}
	return def
}

func (c Component) String() string {
	switch c.kind {
	case componentExact:
		return strconv.Itoa(c.value)
	case componentWildcard:
		return "*"
	default:
		return ""
	}
}

// Pattern is a parsed version token.
type Pattern struct {
	Major       Component
	Minor       Component
	Patch       Component
	HasWildcard bool
}

// Parse parses a version token such as "1.2", "v2.*" or "*".
//
// Errors are *ParseError and match ErrMalformedToken.
func Parse(token string) (Pattern, error) {
	s := token
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		s = s[1:]
	}

	segments := strings.Split(s, ".")
	if len(segments) > maxSegments {
		return Pattern{}, &ParseError{
			Token:   token,
			Message: fmt.Sprintf("expected at most %d segments, got %d", maxSegments, len(segments)),
		}
	}

	var comps [maxSegments]Component
	hasWildcard := false
	for i, seg := range segments {
		c, err := parseSegment(seg)
		if err != nil {
			return Pattern{}, &ParseError{Token: token, Message: fmt.Sprintf("segment %d: %v", i+1, err)}
		}
		if c.IsWildcard() {
			hasWildcard = true
		}
		comps[i] = c
	}

	return Pattern{
		Major:       comps[0],
		Minor:       comps[1],
		Patch:       comps[2],
		HasWildcard: hasWildcard,
	}, nil
}

// MustParse parses a token or panics. Use only for constants and tests.
func MustParse(token string) Pattern {
	p, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(seg string) (Component, error) {
	if seg == "*" {
		return Wildcard(), nil
	}
	if seg == "" {
		return Component{}, errors.New("empty segment")
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return Component{}, fmt.Errorf("%q is neither a number nor '*'", seg)
		}
	}
	v, err := strconv.Atoi(seg)
	if err != nil {
		return Component{}, fmt.Errorf("%q is out of range", seg)
	}
	return Exact(v), nil
}

// IsExact reports whether the pattern names a version without wildcards.
// An exact "M.N" pattern still leaves the patch unconstrained.
func (p Pattern) IsExact() bool {
	return !p.HasWildcard
}

// Matches reports whether n satisfies every exact component of p.
func (p Pattern) Matches(n Number) bool {
	return p.Major.matches(n.Major) && p.Minor.matches(n.Minor) && p.Patch.matches(n.Patch)
}

// String renders the pattern in canonical form, without the "v" prefix.
func (p Pattern) String() string {
	parts := make([]string, 0, maxSegments)
	for _, c := range []Component{p.Major, p.Minor, p.Patch} {
		if c.IsAbsent() {
			break
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ".")
}
