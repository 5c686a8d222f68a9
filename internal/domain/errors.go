package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match with errors.Is and extract details with errors.As.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrDegenerateRange = errors.New("degenerate renormalization range")
	ErrLookupMiss      = errors.New("lookup miss")
)

// ConfigurationError reports an invalid setting or malformed input table.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DegenerateRangeError reports a renormalization span with xmax == xmin.
type DegenerateRangeError struct {
	RenormType string
	Moment     Moment
	Value      float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate renormalization range for (%s, %s): xmin = xmax = %g", e.RenormType, e.Moment, e.Value)
}

func (e *DegenerateRangeError) Is(target error) bool { return target == ErrDegenerateRange }

// LookupMissError reports a key absent from a lookup table.
// Kind names the table ("renorm table", "site catalog").
type LookupMissError struct {
	Kind string
	Key  string
}

func (e *LookupMissError) Error() string {
	return fmt.Sprintf("%s: no entry for %s", e.Kind, e.Key)
}

func (e *LookupMissError) Is(target error) bool { return target == ErrLookupMiss }

// ConfigErrorf builds a *ConfigurationError for field with a formatted reason.
func ConfigErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
