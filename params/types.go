/*
Package params provides the core policy-parameter engine.

PURPOSE:
  This package contains domain-agnostic types and algorithms for managing
  dated policy parameters. Whether tracking tax brackets, consumption
  propensities, or growth-difference assumptions, the same engine handles
  projection across the year horizon, reform application, and validation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Scalar: One cell of a parameter value (number, boolean, or text)
  - Row: One year's value for a parameter (vector of cells; length 1 for
    scalar parameters, one cell per filing-status category for 2-D ones)
  - ValueType: The declared type of a parameter (real/integer/boolean/string)
  - Reform: Sparse year -> parameter -> override mapping

DESIGN PRINCIPLES:
  1. Immutability of inputs: a Schema is loaded once and never mutated
  2. Precision: Uses decimal.Decimal to avoid floating-point drift in
     multi-decade compounding
  3. Explicit ownership: consumers receive copies, never internal slices
  4. Determinism: reform application is order-independent by construction

USAGE:
  sch, _ := params.LoadSchema(jsonBytes, 2013, 18, nil)
  pol := params.New(sch, rates)
  err := pol.Update(params.Reform{2016: {"_II_em": []any{6000.0}}})

SEE ALSO:
  - schema.go: ParameterSpec definitions and JSON loading
  - expand.go: Projection of declared values across the horizon
  - reform.go: Reform application protocol
  - validate.go: Range validation and the warning/error reports
*/
package params

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALUE TYPES
// =============================================================================

// ValueType is the declared type of every cell of a parameter.
type ValueType string

const (
	TypeReal    ValueType = "real"
	TypeInteger ValueType = "integer"
	TypeBoolean ValueType = "boolean"
	TypeString  ValueType = "string"
)

// Numeric reports whether values of this type live on the number line.
func (vt ValueType) Numeric() bool { return vt == TypeReal || vt == TypeInteger }

// IndexSeries selects which growth-rate series drives compounding.
type IndexSeries string

const (
	IndexPrice IndexSeries = "price" // CPI-U price inflation
	IndexWage  IndexSeries = "wage"  // average wage growth
)

// InvalidAction says what an out-of-range value does: accumulate a warning
// and continue, or accumulate an error and (by default) abort the reform.
type InvalidAction string

const (
	ActionWarn InvalidAction = "warn"
	ActionStop InvalidAction = "stop"
)

// =============================================================================
// SCALAR - One cell of a parameter value
// =============================================================================

// Scalar holds one cell. Exactly one field is meaningful; which one is
// determined by the owning parameter's ValueType.
type Scalar struct {
	Number decimal.Decimal
	Bool   bool
	Text   string
}

func Number(d decimal.Decimal) Scalar { return Scalar{Number: d} }
func NumberFloat(f float64) Scalar    { return Scalar{Number: decimal.NewFromFloat(f)} }
func Boolean(b bool) Scalar           { return Scalar{Bool: b} }
func Text(s string) Scalar            { return Scalar{Text: s} }

// Equal compares two cells under the given type.
func (s Scalar) Equal(other Scalar, vt ValueType) bool {
	switch vt {
	case TypeBoolean:
		return s.Bool == other.Bool
	case TypeString:
		return s.Text == other.Text
	default:
		return s.Number.Equal(other.Number)
	}
}

// Display renders a cell for reports and documentation.
func (s Scalar) Display(vt ValueType) string {
	switch vt {
	case TypeBoolean:
		return fmt.Sprintf("%t", s.Bool)
	case TypeString:
		return s.Text
	default:
		return s.Number.String()
	}
}

// =============================================================================
// ROW - One year's value (scalar parameters have a single column)
// =============================================================================

type Row []Scalar

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Inflate multiplies every cell by (1 + rate). Only meaningful for
// real-typed rows; callers enforce that.
func (r Row) Inflate(rate decimal.Decimal) Row {
	factor := decimal.NewFromInt(1).Add(rate)
	out := make(Row, len(r))
	for i, c := range r {
		out[i] = Scalar{Number: c.Number.Mul(factor), Bool: c.Bool, Text: c.Text}
	}
	return out
}

// Display renders a row: a bare cell for scalar parameters, a bracketed
// list for vector ones.
func (r Row) Display(vt ValueType) string {
	if len(r) == 1 {
		return r[0].Display(vt)
	}
	out := "["
	for i, c := range r {
		if i > 0 {
			out += ", "
		}
		out += c.Display(vt)
	}
	return out + "]"
}

// =============================================================================
// REFORM - Sparse year -> parameter -> override mapping
// =============================================================================

// Reform maps a calendar year to the overrides taking effect that year.
// Override payloads keep the loose shape of the JSON documents they come
// from; the engine validates structure before any mutation:
//
//   - a level override is a []any of rows; each row is a cell for scalar
//     parameters or a []any of cells for vector ones; multiple rows cover
//     consecutive years starting at the reform year
//   - a "<name>_cpi" flag override is a single bool
//
// Cells may be float64, int, json.Number, bool, or string.
type Reform map[int]ParamMods

// ParamMods is the set of overrides for one reform year.
type ParamMods map[string]any

// =============================================================================
// RATES - Growth-rate provider (dependency-injected)
// =============================================================================

// Rates supplies fractional annual growth rates. Inflation(y) is the rate
// applied in the transition from year y to year y+1.
type Rates interface {
	Inflation(year int) decimal.Decimal
	WageGrowth(year int) decimal.Decimal
}
