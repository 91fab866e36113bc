package allocator

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors raised by invalid optimizer or request
// configuration. They always surface before any objective evaluation. Use
// errors.Is to match.
var ErrConfiguration = errors.New("invalid allocation configuration")

// ErrOptimizationFailed marks allocation runs whose underlying minimization
// did not converge. Use errors.Is to match.
var ErrOptimizationFailed = errors.New("optimization failed")

// OptimizationError reports a failed allocation run together with the
// solver diagnostic. A failed run never carries a partial allocation.
type OptimizationError struct {
	Message    string
	Iterations int
}

// Error formats the failure with the solver diagnostic.
func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization failed: %s", e.Message)
}

// Unwrap lets errors.Is match ErrOptimizationFailed.
func (e *OptimizationError) Unwrap() error {
	return ErrOptimizationFailed
}

// configError wraps a detail message under ErrConfiguration.
func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}
