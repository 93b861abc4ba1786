package mapping

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/JonMunkholm/statspub/internal/versioning"
)

// LocationPair is a distinct (level status, option type) combination.
type LocationPair struct {
	Level  LevelStatus `json:"level"`
	Option Type        `json:"option"`
}

// FilterPair is a distinct (filter type, option type) combination.
type FilterPair struct {
	Filter Type `json:"filter"`
	Option Type `json:"option"`
}

// Summary lists the distinct classification pairs present in a plan. A plan
// may hold thousands of options but only a handful of distinct states, so
// questions about the whole plan can be answered from the pairs alone.
type Summary struct {
	Locations []LocationPair `json:"locations"`
	Filters   []FilterPair   `json:"filters"`
}

// Summarize collects the distinct location and filter pairs of plan.
//
// Levels and filters without options contribute no pairs. A nil node or a
// node without a valid type fails the whole call with an
// *InvalidPlanShapeError.
func Summarize(plan Plan) (Summary, error) {
	locations := make(map[LocationPair]struct{})
	for _, code := range sortedKeys(plan.Locations.Levels) {
		level := plan.Locations.Levels[code]
		path := fmt.Sprintf("locations.levels[%s]", code)
		if level == nil {
			return Summary{}, &InvalidPlanShapeError{Path: path, Reason: "level is missing"}
		}
		status := level.Status()
		for _, key := range sortedKeys(level.Options) {
			t, err := optionType(level.Options[key], fmt.Sprintf("%s.options[%s]", path, key))
			if err != nil {
				return Summary{}, err
			}
			locations[LocationPair{Level: status, Option: t}] = struct{}{}
		}
	}

	filters := make(map[FilterPair]struct{})
	for _, fkey := range sortedKeys(plan.Filters.Filters) {
		filter := plan.Filters.Filters[fkey]
		path := fmt.Sprintf("filters.filters[%s]", fkey)
		if filter == nil {
			return Summary{}, &InvalidPlanShapeError{Path: path, Reason: "filter is missing"}
		}
		if !filter.Type.Valid() {
			return Summary{}, &InvalidPlanShapeError{Path: path + ".type", Reason: "filter has no valid type"}
		}
		for _, key := range sortedKeys(filter.Options) {
			t, err := optionType(filter.Options[key], fmt.Sprintf("%s.options[%s]", path, key))
			if err != nil {
				return Summary{}, err
			}
			filters[FilterPair{Filter: filter.Type, Option: t}] = struct{}{}
		}
	}

	s := Summary{
		Locations: slices.SortedFunc(maps.Keys(locations), compareLocationPairs),
		Filters:   slices.SortedFunc(maps.Keys(filters), compareFilterPairs),
	}
	return s, nil
}

func optionType(o *OptionMapping, path string) (Type, error) {
	if o == nil {
		return 0, &InvalidPlanShapeError{Path: path, Reason: "option is missing"}
	}
	if !o.Type.Valid() {
		return 0, &InvalidPlanShapeError{Path: path + ".type", Reason: "option has no valid type"}
	}
	return o.Type, nil
}

func compareLocationPairs(a, b LocationPair) int {
	if c := cmp.Compare(a.Level, b.Level); c != 0 {
		return c
	}
	return cmp.Compare(a.Option, b.Option)
}

func compareFilterPairs(a, b FilterPair) int {
	if c := cmp.Compare(a.Filter, b.Filter); c != 0 {
		return c
	}
	return cmp.Compare(a.Option, b.Option)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// Empty reports whether the plan produced no pairs at all.
func (s Summary) Empty() bool {
	return len(s.Locations) == 0 && len(s.Filters) == 0
}

// NeedsManualReview reports whether any option or filter is still
// unclassified or has no automatic counterpart.
func (s Summary) NeedsManualReview() bool {
	for _, p := range s.Locations {
		if p.Option.NeedsReview() {
			return true
		}
	}
	for _, p := range s.Filters {
		if p.Filter.NeedsReview() || p.Option.NeedsReview() {
			return true
		}
	}
	return false
}

// Complete reports whether nothing in the plan needs manual review.
func (s Summary) Complete() bool {
	return !s.NeedsManualReview()
}

// HasBreakingChanges reports whether some source level, filter or option
// has no counterpart in the target version.
func (s Summary) HasBreakingChanges() bool {
	for _, p := range s.Locations {
		if p.Level.Deleted() || p.Option.Deleted() {
			return true
		}
	}
	for _, p := range s.Filters {
		if p.Filter.Deleted() || p.Option.Deleted() {
			return true
		}
	}
	return false
}

// NextVersion suggests the number of the target version: a new major
// version when something was removed, otherwise a new minor version.
func NextVersion(prev versioning.Number, s Summary) versioning.Number {
	if s.HasBreakingChanges() {
		return prev.NextMajor()
	}
	return prev.NextMinor()
}

// Tally counts options by classification. Unlike Summarize it visits every
// option, so it is meant for display rather than decisions.
type Tally struct {
	Options      int `json:"options"`
	AutoMapped   int `json:"autoMapped"`
	AutoNone     int `json:"autoNone"`
	ManualMapped int `json:"manualMapped"`
	ManualNone   int `json:"manualNone"`
	Unclassified int `json:"unclassified"`
}

// NeedReview returns how many options still need an operator.
func (t Tally) NeedReview() int {
	return t.Unclassified + t.AutoNone
}

// Count tallies every location and filter option of plan. It applies the
// same shape checks as Summarize.
func Count(plan Plan) (Tally, error) {
	var t Tally
	add := func(o *OptionMapping, path string) error {
		typ, err := optionType(o, path)
		if err != nil {
			return err
		}
		t.Options++
		switch typ {
		case TypeAutoMapped:
			t.AutoMapped++
		case TypeAutoNone:
			t.AutoNone++
		case TypeManualMapped:
			t.ManualMapped++
		case TypeManualNone:
			t.ManualNone++
		case TypeNone:
			t.Unclassified++
		}
		return nil
	}

	for _, code := range sortedKeys(plan.Locations.Levels) {
		level := plan.Locations.Levels[code]
		path := fmt.Sprintf("locations.levels[%s]", code)
		if level == nil {
			return Tally{}, &InvalidPlanShapeError{Path: path, Reason: "level is missing"}
		}
		for _, key := range sortedKeys(level.Options) {
			if err := add(level.Options[key], fmt.Sprintf("%s.options[%s]", path, key)); err != nil {
				return Tally{}, err
			}
		}
	}
	for _, fkey := range sortedKeys(plan.Filters.Filters) {
		filter := plan.Filters.Filters[fkey]
		path := fmt.Sprintf("filters.filters[%s]", fkey)
		if filter == nil {
			return Tally{}, &InvalidPlanShapeError{Path: path, Reason: "filter is missing"}
		}
		if !filter.Type.Valid() {
			return Tally{}, &InvalidPlanShapeError{Path: path + ".type", Reason: "filter has no valid type"}
		}
		for _, key := range sortedKeys(filter.Options) {
			if err := add(filter.Options[key], fmt.Sprintf("%s.options[%s]", path, key)); err != nil {
				return Tally{}, err
			}
		}
	}
	return t, nil
}
