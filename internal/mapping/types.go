// Package mapping describes how the locations and filters of a new dataset
// version map onto its predecessor, and summarises how much of that mapping
// still needs an operator's attention.
package mapping

import (
	"fmt"
	"strings"
)

// Type is the stored classification of a mapping node.
//
// The zero value is not a valid classification; a node decoded without a
// type is reported as an invalid plan shape.
type Type int

const (
	// TypeNone means the node has not been classified yet.
	TypeNone Type = iota + 1
	// TypeAutoMapped means a correspondence was found automatically.
	TypeAutoMapped
	// TypeAutoNone means no candidate correspondence exists at all.
	TypeAutoNone
	// TypeManualMapped means an operator chose a correspondence.
	TypeManualMapped
	// TypeManualNone means an operator confirmed there is no correspondence.
	TypeManualNone
)

var typeNames = map[Type]string{
	TypeNone:         "None",
	TypeAutoMapped:   "AutoMapped",
	TypeAutoNone:     "AutoNone",
	TypeManualMapped: "ManualMapped",
	TypeManualNone:   "ManualNone",
}

// String returns the wire name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is one of the declared classifications.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// NeedsReview reports whether an operator still has to look at the node:
// it is either unclassified or the automatic pass found nothing to map it to.
func (t Type) NeedsReview() bool {
	return t == TypeNone || t == TypeAutoNone
}

// Deleted reports whether the node has no counterpart in the new version.
func (t Type) Deleted() bool {
	return t == TypeAutoNone || t == TypeManualNone
}

// ParseType parses a wire name, case-insensitively.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown mapping type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid mapping type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LevelStatus is the classification of a location level. Unlike Type it is
// never stored: it is derived from whether the level has any candidates.
type LevelStatus int

const (
	// LevelAutoMapped means the level exists in both versions.
	LevelAutoMapped LevelStatus = iota + 1
	// LevelAutoNone means the level has no candidate in the new version.
	LevelAutoNone
)

// String returns the wire name of the status.
func (s LevelStatus) String() string {
	switch s {
	case LevelAutoMapped:
		return "AutoMapped"
	case LevelAutoNone:
		return "AutoNone"
	default:
		return fmt.Sprintf("LevelStatus(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LevelStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Only the two derived
// statuses are accepted.
func (s *LevelStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "AutoMapped":
		*s = LevelAutoMapped
	case "AutoNone":
		*s = LevelAutoNone
	default:
		return fmt.Errorf("unknown level status %q", string(b))
	}
	return nil
}

// Deleted reports whether the level disappears in the new version.
func (s LevelStatus) Deleted() bool {
	return s == LevelAutoNone
}
