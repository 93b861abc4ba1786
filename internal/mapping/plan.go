package mapping

// Plan records, for one target dataset version, how each location and
// filter of the source version corresponds to the target.
type Plan struct {
	Locations LocationPlan `json:"locations" yaml:"locations"`
	Filters   FilterPlan   `json:"filters" yaml:"filters"`
}

// LocationPlan maps geographic level codes to level mappings.
type LocationPlan struct {
	Levels map[string]*LevelMapping `json:"levels" yaml:"levels"`
}

// LevelMapping holds the option mappings of one geographic level. A level
// has no stored type; see Status.
type LevelMapping struct {
	// Candidates are the target options available at this level.
	Candidates []string `json:"candidates" yaml:"candidates"`
	// Options are keyed by source option key.
	Options map[string]*OptionMapping `json:"options" yaml:"options"`
}

// Status derives the level's classification from its candidates.
func (l *LevelMapping) Status() LevelStatus {
	if len(l.Candidates) == 0 {
		return LevelAutoNone
	}
	return LevelAutoMapped
}

// FilterPlan maps source filter keys to filter mappings.
type FilterPlan struct {
	Filters map[string]*FilterMapping `json:"filters" yaml:"filters"`
}

// FilterMapping is the stored mapping of one source filter.
type FilterMapping struct {
	Type       Type                      `json:"type" yaml:"type"`
	Candidates []string                  `json:"candidates" yaml:"candidates"`
	Target     string                    `json:"target,omitempty" yaml:"target,omitempty"`
	Options    map[string]*OptionMapping `json:"options" yaml:"options"`
}

// OptionMapping is the stored mapping of one source location or filter
// option.
type OptionMapping struct {
	Type       Type     `json:"type" yaml:"type"`
	Candidates []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	// Target is the chosen candidate, empty unless the option is mapped.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}
