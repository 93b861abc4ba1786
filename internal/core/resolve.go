package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/versioning"
)

// ListPublicVersions returns the public versions of a dataset, newest first.
func (s *Service) ListPublicVersions(ctx context.Context, datasetID uuid.UUID) ([]DatasetVersion, error) {
	versions, err := s.store.ListDatasetVersions(ctx, datasetID, PublicStatuses...)
	if err != nil {
		return nil, fmt.Errorf("list public versions: %w", err)
	}
	slices.SortFunc(versions, func(a, b DatasetVersion) int {
		return b.Number.Compare(a.Number)
	})
	return versions, nil
}

// ResolveVersion resolves a version token such as "1.2", "v2.*" or "*"
// against the public versions of a dataset and returns the greatest match.
//
// A token that does not parse matches nothing and yields the same
// *NotFoundError as a well-formed token with no match. The parse failure is
// logged at debug level.
func (s *Service) ResolveVersion(ctx context.Context, datasetID uuid.UUID, token string) (DatasetVersion, error) {
	pattern, err := versioning.Parse(token)
	if err != nil {
		s.logger.DebugContext(ctx, "malformed version token",
			"dataset_id", datasetID,
			"token", token,
			"error", err,
		)
		return DatasetVersion{}, ErrNotFound(ErrVersionNotFound, "no version of dataset %s matches %q", datasetID, token)
	}

	lister := versioning.ListerFunc[uuid.UUID, DatasetVersion](func(ctx context.Context, id uuid.UUID) ([]DatasetVersion, error) {
		return s.store.ListDatasetVersions(ctx, id, PublicStatuses...)
	})

	v, found, err := versioning.ResolvePattern[uuid.UUID, DatasetVersion](ctx, lister, datasetID, pattern)
	if err != nil {
		return DatasetVersion{}, err
	}
	if !found {
		return DatasetVersion{}, ErrNotFound(ErrVersionNotFound, "no version of dataset %s matches %q", datasetID, token)
	}
	return v, nil
}

// GetVersion returns a dataset version by id regardless of its status.
func (s *Service) GetVersion(ctx context.Context, id uuid.UUID) (DatasetVersion, error) {
	return s.store.GetDatasetVersion(ctx, id)
}
