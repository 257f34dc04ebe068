package entity

import "fmt"

// ValidationError names the offending field so callers can distinguish bad
// input from state conflicts. It is always raised before any persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
