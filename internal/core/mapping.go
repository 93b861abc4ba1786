package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/mapping"
	"github.com/JonMunkholm/statspub/internal/versioning"
)

// MappingReview is the completeness report for the mapping plan of a
// target version.
type MappingReview struct {
	SourceVersionID    uuid.UUID         `json:"sourceVersionId"`
	TargetVersionID    uuid.UUID         `json:"targetVersionId"`
	SourceVersion      versioning.Number `json:"sourceVersion"`
	Summary            mapping.Summary   `json:"summary"`
	Tally              mapping.Tally     `json:"tally"`
	NeedsManualReview  bool              `json:"needsManualReview"`
	HasBreakingChanges bool              `json:"hasBreakingChanges"`
	SuggestedVersion   versioning.Number `json:"suggestedVersion"`
}

// ReviewMapping summarises the stored mapping plan of a target version and
// suggests its version number relative to the source version.
func (s *Service) ReviewMapping(ctx context.Context, targetVersionID uuid.UUID) (MappingReview, error) {
	rec, err := s.store.GetMappingPlan(ctx, targetVersionID)
	if err != nil {
		return MappingReview{}, err
	}

	source, err := s.store.GetDatasetVersion(ctx, rec.SourceVersionID)
	if err != nil {
		return MappingReview{}, fmt.Errorf("get source version: %w", err)
	}

	summary, err := mapping.Summarize(rec.Plan)
	if err != nil {
		s.logger.Error("stored mapping plan is malformed",
			"target_version_id", targetVersionID,
			"error", err,
		)
		return MappingReview{}, fmt.Errorf("summarize mapping of %s: %w", targetVersionID, err)
	}
	tally, err := mapping.Count(rec.Plan)
	if err != nil {
		return MappingReview{}, fmt.Errorf("count mapping of %s: %w", targetVersionID, err)
	}

	return MappingReview{
		SourceVersionID:    rec.SourceVersionID,
		TargetVersionID:    rec.TargetVersionID,
		SourceVersion:      source.Number,
		Summary:            summary,
		Tally:              tally,
		NeedsManualReview:  summary.NeedsManualReview(),
		HasBreakingChanges: summary.HasBreakingChanges(),
		SuggestedVersion:   mapping.NextVersion(source.Number, summary),
	}, nil
}
