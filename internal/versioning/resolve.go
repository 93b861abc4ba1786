package versioning

import (
	"context"
	"fmt"
)

// Numbered is anything carrying a version Number.
type Numbered interface {
	VersionNumber() Number
}

// Lister lists every version of one dataset. K is the dataset key type.
// Implementations may filter by status; Resolve only selects among what
// the lister returns.
type Lister[K any, V Numbered] interface {
	ListVersions(ctx context.Context, datasetID K) ([]V, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc[K any, V Numbered] func(ctx context.Context, datasetID K) ([]V, error)

// ListVersions calls f.
func (f ListerFunc[K, V]) ListVersions(ctx context.Context, datasetID K) ([]V, error) {
	return f(ctx, datasetID)
}

// Select returns the greatest version matching every exact component of
// the pattern. The result does not depend on the order of versions.
func Select[V Numbered](versions []V, pattern Pattern) (V, bool) {
	var best V
	found := false
	for _, v := range versions {
		n := v.VersionNumber()
		if !pattern.Matches(n) {
			continue
		}
		if !found || best.VersionNumber().Less(n) {
			best = v
			found = true
		}
	}
	return best, found
}

// SelectToken parses token and selects from versions. A malformed token
// selects nothing.
func SelectToken[V Numbered](versions []V, token string) (V, bool) {
	pattern, err := Parse(token)
	if err != nil {
		var zero V
		return zero, false
	}
	return Select(versions, pattern)
}

// Resolve finds the version of a dataset that best matches token.
//
// found is false when the token is malformed or nothing matches. err is
// only non-nil when listing the versions fails.
func Resolve[K any, V Numbered](ctx context.Context, lister Lister[K, V], datasetID K, token string) (v V, found bool, err error) {
	pattern, parseErr := Parse(token)
	if parseErr != nil {
		return v, false, nil
	}
	return ResolvePattern(ctx, lister, datasetID, pattern)
}

// ResolvePattern is Resolve for an already parsed pattern.
func ResolvePattern[K any, V Numbered](ctx context.Context, lister Lister[K, V], datasetID K, pattern Pattern) (v V, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return v, false, err
	}

	versions, err := lister.ListVersions(ctx, datasetID)
	if err != nil {
		return v, false, fmt.Errorf("list versions: %w", err)
	}

	v, found = Select(versions, pattern)
	return v, found, nil
}
