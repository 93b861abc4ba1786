package mapping

import (
	"errors"
	"fmt"
)

// ErrInvalidPlanShape is matched by errors reporting a malformed plan.
var ErrInvalidPlanShape = errors.New("invalid mapping plan shape")

// InvalidPlanShapeError names the plan node that is missing or malformed.
type InvalidPlanShapeError struct {
	Path   string
	Reason string
}

func (e *InvalidPlanShapeError) Error() string {
	return fmt.Sprintf("invalid mapping plan at %s: %s", e.Path, e.Reason)
}

// Is reports ErrInvalidPlanShape so callers can use errors.Is.
func (e *InvalidPlanShapeError) Is(target error) bool {
	return target == ErrInvalidPlanShape
}
