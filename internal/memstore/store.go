// Package memstore is an in-memory implementation of core.Store.
//
// It backs the tests and local runs without Postgres, and enforces the
// same rules the database schema does: version numbers are unique per
// dataset and a version cannot be removed while another one names it as
// its predecessor.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/statspub/internal/core"
)

// Store holds versions, mapping plans and audit entries in memory.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	versions map[uuid.UUID]core.DatasetVersion
	mappings map[uuid.UUID]core.MappingRecord
	audit    []core.AuditEntry
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		versions: make(map[uuid.UUID]core.DatasetVersion),
		mappings: make(map[uuid.UUID]core.MappingRecord),
	}
}

// AddVersion inserts v. It rejects duplicate ids and a version number that
// already exists in the same dataset.
func (s *Store) AddVersion(v core.DatasetVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[v.ID]; ok {
		return fmt.Errorf("memstore: duplicate key %s", v.ID)
	}
	for _, other := range s.versions {
		if other.DatasetID == v.DatasetID && other.Number == v.Number {
			return fmt.Errorf("memstore: version %s of dataset %s violates unique constraint", v.Number, v.DatasetID)
		}
	}
	s.versions[v.ID] = v
	return nil
}

// PutMapping stores rec, replacing any plan for the same target version.
func (s *Store) PutMapping(rec core.MappingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[rec.TargetVersionID] = rec
}

// AuditEntries returns a copy of the audit log in insertion order.
func (s *Store) AuditEntries() []core.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.audit)
}

// ListDatasetVersions returns the versions of a dataset ordered by number.
func (s *Store) ListDatasetVersions(ctx context.Context, datasetID uuid.UUID, statuses ...core.Status) ([]core.DatasetVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.DatasetVersion
	for _, v := range s.versions {
		if v.DatasetID != datasetID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, v.Status) {
			continue
		}
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b core.DatasetVersion) int {
		return cmp.Or(a.Number.Compare(b.Number), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}

// GetDatasetVersion returns a version by id.
func (s *Store) GetDatasetVersion(ctx context.Context, id uuid.UUID) (core.DatasetVersion, error) {
	if err := ctx.Err(); err != nil {
		return core.DatasetVersion{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return core.DatasetVersion{}, core.ErrNotFound(core.ErrVersionNotFound, "dataset version %s not found", id)
	}
	return v, nil
}

// DeleteDatasetVersion removes a version and its mapping plan. It fails
// while another version names it as predecessor.
func (s *Store) DeleteDatasetVersion(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[id]; !ok {
		return core.ErrNotFound(core.ErrVersionNotFound, "dataset version %s not found", id)
	}
	for _, other := range s.versions {
		if other.PreviousVersionID != nil && *other.PreviousVersionID == id {
			return fmt.Errorf("memstore: delete %s violates foreign key constraint: referenced by %s", id, other.ID)
		}
	}
	delete(s.versions, id)
	delete(s.mappings, id)
	return nil
}

// GetMappingPlan returns the mapping plan whose target is targetVersionID.
func (s *Store) GetMappingPlan(ctx context.Context, targetVersionID uuid.UUID) (core.MappingRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.MappingRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.mappings[targetVersionID]
	if !ok {
		return core.MappingRecord{}, core.ErrNotFound(core.ErrMappingNotFound, "no mapping plan for version %s", targetVersionID)
	}
	return rec, nil
}

// InsertAuditEntry appends entry to the audit log.
func (s *Store) InsertAuditEntry(ctx context.Context, entry core.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// ListAuditEntries returns matching entries newest first. Entries with
// equal timestamps come in reverse insertion order.
func (s *Store) ListAuditEntries(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		if e := s.audit[i]; matchesAudit(e, f) {
			matched = append(matched, e)
		}
	}
	slices.SortStableFunc(matched, func(a, b core.AuditEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := int64(len(matched))
	start := min(max(f.Offset, 0), len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, end)
	}
	return slices.Clone(matched[start:end]), total, nil
}

func matchesAudit(e core.AuditEntry, f core.AuditFilter) bool {
	switch {
	case f.DatasetID != nil && e.DatasetID != *f.DatasetID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Severity != "" && e.Severity != f.Severity:
		return false
	case !f.Since.IsZero() && e.CreatedAt.Before(f.Since):
		return false
	case !f.Until.IsZero() && !e.CreatedAt.Before(f.Until):
		return false
	}
	return true
}

// PurgeAuditEntries removes entries created before the cutoff.
func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.audit)
	s.audit = slices.DeleteFunc(s.audit, func(e core.AuditEntry) bool {
		return e.CreatedAt.Before(before)
	})
	return int64(n - len(s.audit)), nil
}
