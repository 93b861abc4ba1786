package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/lineage"
)

// DeletionPlan lists deletable versions of a dataset in the order they
// would be removed: within each lineage the newest version comes first.
type DeletionPlan struct {
	DatasetID uuid.UUID        `json:"datasetId"`
	Versions  []DatasetVersion `json:"versions"`
	Lineages  int              `json:"lineages"`
}

// DeletedVersion identifies one removed version.
type DeletedVersion struct {
	ID      uuid.UUID `json:"id"`
	Version string    `json:"version"`
}

// DeletionResult reports what a deletion workflow removed. When the workflow
// stops early Deleted holds everything removed before the failure.
type DeletionResult struct {
	DatasetID uuid.UUID        `json:"datasetId"`
	Requested int              `json:"requested"`
	Deleted   []DeletedVersion `json:"deleted"`
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
}

// PlanDeletion returns the deletable versions of a dataset in deletion order.
func (s *Service) PlanDeletion(ctx context.Context, datasetID uuid.UUID) (DeletionPlan, error) {
	versions, err := s.store.ListDatasetVersions(ctx, datasetID, DeletableStatuses...)
	if err != nil {
		return DeletionPlan{}, fmt.Errorf("list deletable versions: %w", err)
	}

	order, err := s.orderForDeletion(ctx, datasetID, versions)
	if err != nil {
		return DeletionPlan{}, err
	}

	return DeletionPlan{
		DatasetID: datasetID,
		Versions:  order.Sorted(),
		Lineages:  order.Lineages(),
	}, nil
}

// DeleteVersions removes the given versions of a dataset, or every deletable
// version when versionIDs is empty.
//
// Candidates are removed one at a time, successors before their
// predecessors, so a version is never deleted while something still points
// at it. The workflow refuses public versions and versions referenced by a
// version that is not itself being deleted.
func (s *Service) DeleteVersions(ctx context.Context, datasetID uuid.UUID, versionIDs []uuid.UUID) (DeletionResult, error) {
	result := DeletionResult{DatasetID: datasetID}

	release, err := s.limiter.Acquire(ctx, datasetID)
	if err != nil {
		return result, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.deletionTimeout)
	defer cancel()

	all, err := s.store.ListDatasetVersions(ctx, datasetID)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("list versions: %w", err)
	}

	candidates, err := s.selectCandidates(ctx, datasetID, all, versionIDs)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Requested = len(candidates)

	order, err := s.orderForDeletion(ctx, datasetID, candidates)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	start := time.Now()
	for _, v := range order.Sorted() {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result, err
		}

		err := s.store.DeleteDatasetVersion(ctx, v.ID)
		if errors.Is(err, ErrVersionNotFound) {
			s.logger.Warn("version already deleted", "dataset_id", datasetID, "version_id", v.ID)
			continue
		}
		if err != nil {
			result.Error = fmt.Sprintf("delete %s: %v", v.Number, err)
			s.logger.Error("deletion stopped",
				"dataset_id", datasetID,
				"version", v.Number.String(),
				"deleted", len(result.Deleted),
				"error", err,
			)
			return result, fmt.Errorf("delete version %s: %w", v.Number, err)
		}

		id := v.ID
		result.Deleted = append(result.Deleted, DeletedVersion{ID: id, Version: v.Number.String()})
		s.logAuditBestEffort(ctx, AuditLogParams{
			Action:       ActionVersionDelete,
			DatasetID:    datasetID,
			VersionID:    &id,
			Version:      v.Number.String(),
			RowsAffected: 1,
			Details:      map[string]any{"status": string(v.Status)},
		})
	}

	result.Success = true
	s.logger.Info("deletion completed",
		"dataset_id", datasetID,
		"deleted", len(result.Deleted),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// selectCandidates resolves the requested ids against all versions of the
// dataset and checks that removing them leaves no dangling reference.
func (s *Service) selectCandidates(ctx context.Context, datasetID uuid.UUID, all []DatasetVersion, versionIDs []uuid.UUID) ([]DatasetVersion, error) {
	byID := make(map[uuid.UUID]DatasetVersion, len(all))
	for _, v := range all {
		byID[v.ID] = v
	}

	selected := make(map[uuid.UUID]bool)
	var candidates []DatasetVersion

	if len(versionIDs) == 0 {
		for _, v := range all {
			if v.Status.Deletable() {
				selected[v.ID] = true
				candidates = append(candidates, v)
			}
		}
	}

	for _, id := range versionIDs {
		if selected[id] {
			continue
		}
		v, ok := byID[id]
		if !ok {
			return nil, ErrNotFound(ErrVersionNotFound, "version %s not found in dataset %s", id, datasetID)
		}
		if !v.Status.Deletable() {
			s.logAuditBestEffort(ctx, AuditLogParams{
				Action:    ActionDeletionRejected,
				DatasetID: datasetID,
				VersionID: &id,
				Version:   v.Number.String(),
				Reason:    "status " + string(v.Status),
			})
			return nil, ErrConflict(ErrVersionPublished, "version %s is %s and cannot be deleted", v.Number, v.Status)
		}
		selected[id] = true
		candidates = append(candidates, v)
	}

	for _, v := range all {
		if selected[v.ID] || v.PreviousVersionID == nil {
			continue
		}
		if selected[*v.PreviousVersionID] {
			prev := byID[*v.PreviousVersionID]
			return nil, ErrConflict(ErrVersionReferenced,
				"version %s is the predecessor of version %s, which is not being deleted", prev.Number, v.Number)
		}
	}

	return candidates, nil
}

// orderForDeletion sorts candidates for deletion. A cyclic chain is reported
// at error level and audited; nothing is returned in that case.
func (s *Service) orderForDeletion(ctx context.Context, datasetID uuid.UUID, candidates []DatasetVersion) (*lineage.Order[DatasetVersion], error) {
	order, err := lineage.NewOrder(candidates)
	if err == nil {
		return order, nil
	}

	var cycle *lineage.CyclicChainError
	if errors.As(err, &cycle) {
		s.logger.Error("cyclic version chain",
			"dataset_id", datasetID,
			"version_ids", cycle.IDs,
		)
		s.logAuditBestEffort(ctx, AuditLogParams{
			Action:    ActionDeletionAborted,
			DatasetID: datasetID,
			Reason:    err.Error(),
			Details:   map[string]any{"versionIds": cycle.IDs},
		})
	}
	return nil, fmt.Errorf("order versions of dataset %s: %w", datasetID, err)
}
