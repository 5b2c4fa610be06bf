/*
errors.go - Centralized error types for the parameter engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (policy, assump) wrap these errors with context.

ERROR CATEGORIES:
  1. Schema errors - Malformed parameter definition documents
  2. Structural errors - Malformed reforms; always raised, never recoverable
  3. Validation errors - Out-of-range values after a reform is installed;
     accumulated into a full report, raised only for action=stop parameters

USAGE:
  Callers can branch with errors.Is():

    if errors.Is(err, params.ErrRemovedParameter) {
        // tell the reform author which release removed it
    }

SEE ALSO:
  - reform.go: Raises the structural errors
  - validate.go: Builds ValidationReport
*/
package params

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBadSchema is returned when a parameter definition document is
	// malformed or internally inconsistent.
	ErrBadSchema = errors.New("invalid parameter schema")

	// ErrMalformedReform is returned when a reform has the wrong shape:
	// non-mapping payloads, non-list value containers, misplaced keys.
	ErrMalformedReform = errors.New("malformed reform")

	// ErrUnknownParameter is returned when a reform names a parameter
	// that never existed in the schema.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrRemovedParameter is returned when a reform names a parameter
	// deprecated in a prior schema revision. Distinct from
	// ErrUnknownParameter so reform authors get an actionable message.
	ErrRemovedParameter = errors.New("removed parameter")

	// ErrNotInflatable is returned when a "_cpi" flag override targets a
	// parameter that does not declare cpi_inflatable.
	ErrNotInflatable = errors.New("parameter is not cpi-inflatable")

	// ErrYearOutOfRange is returned when a reform year falls outside the
	// schema horizon.
	ErrYearOutOfRange = errors.New("year outside parameter horizon")

	// ErrReformsPast is returned when a reform year precedes the current
	// year. Reforms may change the present or future, never the past.
	ErrReformsPast = errors.New("reform year precedes current year")

	// ErrTypeMismatch is returned when an override cell does not match the
	// parameter's declared value type.
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrShapeMismatch is returned when an override row does not match the
	// parameter's declared vector width.
	ErrShapeMismatch = errors.New("value shape mismatch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ReformError identifies the parameter and year of a structural failure.
type ReformError struct {
	Name string
	Year int
	Msg  string
	Kind error // one of the sentinels above
}

func (e *ReformError) Error() string {
	if e.Year != 0 {
		return fmt.Sprintf("reform year %d, parameter %s: %s", e.Year, e.Name, e.Msg)
	}
	return fmt.Sprintf("reform parameter %s: %s", e.Name, e.Msg)
}

func (e *ReformError) Unwrap() error { return e.Kind }

// ValidationReport carries the accumulated out-of-range messages when a
// reform fails with action=stop violations. The report names every
// violation, never just the first.
type ValidationReport struct {
	Report string
}

func (e *ValidationReport) Error() string {
	return "reform validation failed:\n" + e.Report
}

// IsStructural reports whether err is a structural error that the caller
// must fix before retrying (as opposed to an out-of-range validation).
func IsStructural(err error) bool {
	return errors.Is(err, ErrMalformedReform) ||
		errors.Is(err, ErrUnknownParameter) ||
		errors.Is(err, ErrRemovedParameter) ||
		errors.Is(err, ErrNotInflatable) ||
		errors.Is(err, ErrYearOutOfRange) ||
		errors.Is(err, ErrReformsPast) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrShapeMismatch)
}
