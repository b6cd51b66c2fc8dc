package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every ValidationError.
	ErrInvalidConfig = errors.New("invalid embedding configuration")

	// ErrConflictingTables is returned in strict mode when two table configs share a name
	// but disagree on vocabulary size, dimension or combiner.
	ErrConflictingTables = errors.New("conflicting table configs")

	ErrTableNotFound   = errors.New("embedding table not found")
	ErrShape           = errors.New("invalid input shape")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ValidationError identifies the offending field and value of a rejected config.
type ValidationError struct {
	Field string
	Value interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v", e.Field, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}
