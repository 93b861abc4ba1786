package lineage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCyclicVersionChain is matched by errors reporting a predecessor cycle.
	ErrCyclicVersionChain = errors.New("cyclic version chain")

	// ErrDuplicateEntity indicates two entities share an id.
	ErrDuplicateEntity = errors.New("duplicate entity id")

	// ErrMissingEntityID indicates an entity with an empty id.
	ErrMissingEntityID = errors.New("entity has no id")
)

// CyclicChainError lists the entities that sit on, or hang off, a
// predecessor cycle. The ids are sorted.
type CyclicChainError struct {
	IDs []string
}

func (e *CyclicChainError) Error() string {
	return fmt.Sprintf("cyclic version chain involving %s", strings.Join(e.IDs, ", "))
}

// Is reports ErrCyclicVersionChain so callers can use errors.Is.
func (e *CyclicChainError) Is(target error) bool {
	return target == ErrCyclicVersionChain
}
