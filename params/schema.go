/*
schema.go - Parameter schema store

PURPOSE:
  Defines the immutable per-parameter specification (ParameterSpec in the
  design documents) and loads a complete Schema from its JSON document.
  The schema is the contract between the engine and the parameter files:
  declared default values by year, type, shape, indexing behavior, and the
  legal/structural value ranges used by validation.

SCHEMA JSON FORMAT (one object per parameter):
  "_II_em": {
      "long_name": "Personal and dependent exemption amount",
      "description": "Subtracted from AGI in the calculation of taxable income.",
      "section_1": "Personal Exemptions",
      "section_2": "Personal And Dependent Exemption Amount",
      "value_type": "real",
      "cpi_inflatable": true,
      "cpi_inflated": true,
      "index_series": "price",
      "row_label": ["2013", "2014"],
      "value": [3900, 3950],
      "valid_values": {"min": 0, "max": 9e99},
      "invalid_action": "stop",
      "invalid_minmsg": "",
      "invalid_maxmsg": ""
  }

  Vector parameters declare each row as an array:
      "value": [[487, 3250, 5372, 6044], [496, 3305, 5460, 6143]]

  Bounds may be a literal, the token "default" (compare against the
  baseline value for the same year), or another parameter's name
  (compare against that parameter's value in the same year).

LOADING RULES:
  - row_label length must equal the declared value series length and the
    labels must be consecutive year strings starting at the schema start year
  - integer/boolean/string parameters may not be marked cpi_inflatable;
    that is a schema configuration error
  - vector rows must all share one width

SEE ALSO:
  - types.go: cell/row primitives
  - parameters.go: the live state built from a Schema
*/
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// =============================================================================
// PARAMETER SPEC - Immutable per-parameter definition
// =============================================================================

// BoundKind distinguishes the three kinds of valid-range bound.
type BoundKind int

const (
	BoundLiteral BoundKind = iota
	BoundDefault           // "same as baseline value for this year"
	BoundParam             // value of another parameter in the same year
)

// Bound is one end of a parameter's valid range.
type Bound struct {
	Kind    BoundKind
	Literal Scalar
	Param   string // canonical name of the referenced parameter
}

// Range is the declared valid-value constraint of a numeric parameter.
// String parameters use Options instead of Min/Max.
type Range struct {
	Min     Bound
	Max     Bound
	Options []string
	Action  InvalidAction
	MinMsg  string
	MaxMsg  string
}

// Spec is the immutable definition of one parameter.
type Spec struct {
	Name        string // canonical name, with leading underscore
	LongName    string
	Description string
	Section1    string
	Section2    string

	ValueType ValueType
	Columns   int // 1 for scalar parameters

	// Declared default values, one row per declared year starting at the
	// schema start year, with matching row labels.
	Defaults  []Row
	RowLabels []string

	// Indexing behavior. CPIInflatable says the parameter MAY be indexed
	// (and so accepts a "<name>_cpi" reform flag); CPIInflated is the
	// default flag value absent any reform.
	CPIInflatable bool
	CPIInflated   bool
	IndexSeries   IndexSeries

	ValidRange *Range // nil for parameters without declared constraints
}

// =============================================================================
// SCHEMA - The full parameter store
// =============================================================================

// Schema is the loaded, immutable set of parameter specifications.
type Schema struct {
	startYear int
	numYears  int
	specs     map[string]*Spec
	order     []string          // canonical names in sorted order
	removed   map[string]string // removed parameter name -> explanation
}

// StartYear returns the first calendar year of the horizon.
func (s *Schema) StartYear() int { return s.startYear }

// NumYears returns the length of the horizon.
func (s *Schema) NumYears() int { return s.numYears }

// EndYear returns the last supported calendar year.
func (s *Schema) EndYear() int { return s.startYear + s.numYears - 1 }

// Names returns the canonical parameter names in deterministic order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Spec looks up a parameter by canonical or plain name.
func (s *Schema) Spec(name string) (*Spec, bool) {
	sp, ok := s.specs[Canonical(name)]
	return sp, ok
}

// RemovedReason reports whether name is a known-removed parameter and, if
// so, the explanation reform authors should see.
func (s *Schema) RemovedReason(name string) (string, bool) {
	reason, ok := s.removed[Canonical(name)]
	return reason, ok
}

// Canonical normalizes a parameter name to its underscored schema form.
func Canonical(name string) string {
	if len(name) > 0 && name[0] == '_' {
		return name
	}
	return "_" + name
}

// =============================================================================
// JSON LOADING
// =============================================================================

type specJSON struct {
	LongName      string          `json:"long_name"`
	Description   string          `json:"description"`
	Section1      string          `json:"section_1"`
	Section2      string          `json:"section_2"`
	ValueType     ValueType       `json:"value_type"`
	CPIInflatable bool            `json:"cpi_inflatable"`
	CPIInflated   bool            `json:"cpi_inflated"`
	IndexSeries   IndexSeries     `json:"index_series,omitempty"`
	RowLabels     []string        `json:"row_label"`
	Value         json.RawMessage `json:"value"`
	ValidValues   json.RawMessage `json:"valid_values"`
	InvalidAction InvalidAction   `json:"invalid_action"`
	InvalidMinMsg string          `json:"invalid_minmsg"`
	InvalidMaxMsg string          `json:"invalid_maxmsg"`
}

// LoadSchema parses the schema JSON document. The document maps canonical
// parameter names to their specifications. removed lists parameters that
// existed in prior schema revisions; reforms naming them get a dedicated,
// actionable error instead of a generic unknown-name one.
func LoadSchema(doc []byte, startYear, numYears int, removed map[string]string) (*Schema, error) {
	if startYear <= 0 || numYears <= 0 {
		return nil, fmt.Errorf("%w: start_year=%d num_years=%d", ErrBadSchema, startYear, numYears)
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var raw map[string]specJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSchema, err)
	}
	sch := &Schema{
		startYear: startYear,
		numYears:  numYears,
		specs:     make(map[string]*Spec, len(raw)),
		removed:   make(map[string]string, len(removed)),
	}
	for name, reason := range removed {
		sch.removed[Canonical(name)] = reason
	}
	for name, sj := range raw {
		sp, err := buildSpec(Canonical(name), sj, startYear, numYears)
		if err != nil {
			return nil, err
		}
		sch.specs[sp.Name] = sp
		sch.order = append(sch.order, sp.Name)
	}
	sort.Strings(sch.order)
	// dynamic bounds must reference parameters that exist
	for _, name := range sch.order {
		sp := sch.specs[name]
		if sp.ValidRange == nil {
			continue
		}
		for _, b := range []Bound{sp.ValidRange.Min, sp.ValidRange.Max} {
			if b.Kind == BoundParam {
				if _, ok := sch.specs[b.Param]; !ok {
					return nil, fmt.Errorf("%w: %s range references unknown parameter %s",
						ErrBadSchema, name, b.Param)
				}
			}
		}
	}
	return sch, nil
}

func buildSpec(name string, sj specJSON, startYear, numYears int) (*Spec, error) {
	switch sj.ValueType {
	case TypeReal, TypeInteger, TypeBoolean, TypeString:
	default:
		return nil, fmt.Errorf("%w: %s has unknown value_type %q", ErrBadSchema, name, sj.ValueType)
	}
	if sj.CPIInflatable && sj.ValueType != TypeReal {
		return nil, fmt.Errorf("%w: %s is %s-typed and cannot be cpi_inflatable",
			ErrBadSchema, name, sj.ValueType)
	}
	if sj.CPIInflated && !sj.CPIInflatable {
		return nil, fmt.Errorf("%w: %s is cpi_inflated but not cpi_inflatable", ErrBadSchema, name)
	}
	series := sj.IndexSeries
	if series == "" {
		series = IndexPrice
	}
	if series != IndexPrice && series != IndexWage {
		return nil, fmt.Errorf("%w: %s has unknown index_series %q", ErrBadSchema, name, series)
	}

	rows, cols, err := decodeDefaultRows(name, sj.Value, sj.ValueType)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows) > numYears {
		return nil, fmt.Errorf("%w: %s declares %d default rows for a %d-year horizon",
			ErrBadSchema, name, len(rows), numYears)
	}
	if len(sj.RowLabels) != len(rows) {
		return nil, fmt.Errorf("%w: %s row_label length %d != value length %d",
			ErrBadSchema, name, len(sj.RowLabels), len(rows))
	}
	for i, label := range sj.RowLabels {
		if label != strconv.Itoa(startYear+i) {
			return nil, fmt.Errorf("%w: %s row_label[%d]=%q, want %q",
				ErrBadSchema, name, i, label, strconv.Itoa(startYear+i))
		}
	}

	vr, err := decodeRange(name, sj)
	if err != nil {
		return nil, err
	}

	return &Spec{
		Name:          name,
		LongName:      sj.LongName,
		Description:   sj.Description,
		Section1:      sj.Section1,
		Section2:      sj.Section2,
		ValueType:     sj.ValueType,
		Columns:       cols,
		Defaults:      rows,
		RowLabels:     append([]string(nil), sj.RowLabels...),
		CPIInflatable: sj.CPIInflatable,
		CPIInflated:   sj.CPIInflated,
		IndexSeries:   series,
		ValidRange:    vr,
	}, nil
}

func decodeDefaultRows(name string, raw json.RawMessage, vt ValueType) ([]Row, int, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, 0, fmt.Errorf("%w: %s value is not a list", ErrBadSchema, name)
	}
	var rows []Row
	cols := 0
	for i, elem := range outer {
		var inner []json.RawMessage
		isVector := json.Unmarshal(elem, &inner) == nil && len(elem) > 0 && elem[0] == '['
		var row Row
		if isVector {
			for _, cellRaw := range inner {
				cell, err := decodeCell(name, cellRaw, vt)
				if err != nil {
					return nil, 0, err
				}
				row = append(row, cell)
			}
		} else {
			cell, err := decodeCell(name, elem, vt)
			if err != nil {
				return nil, 0, err
			}
			row = Row{cell}
		}
		if i == 0 {
			cols = len(row)
		} else if len(row) != cols {
			return nil, 0, fmt.Errorf("%w: %s row %d has %d columns, want %d",
				ErrBadSchema, name, i, len(row), cols)
		}
		rows = append(rows, row)
	}
	return rows, cols, nil
}

func decodeCell(name string, raw json.RawMessage, vt ValueType) (Scalar, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Scalar{}, fmt.Errorf("%w: %s cell %s", ErrBadSchema, name, raw)
	}
	cell, err := CoerceCell(v, vt)
	if err != nil {
		return Scalar{}, fmt.Errorf("%w: %s: %v", ErrBadSchema, name, err)
	}
	return cell, nil
}

func decodeRange(name string, sj specJSON) (*Range, error) {
	if len(sj.ValidValues) == 0 {
		return nil, nil
	}
	var vv struct {
		Min     json.RawMessage `json:"min"`
		Max     json.RawMessage `json:"max"`
		Options []string        `json:"options"`
	}
	if err := json.Unmarshal(sj.ValidValues, &vv); err != nil {
		return nil, fmt.Errorf("%w: %s valid_values", ErrBadSchema, name)
	}
	vr := &Range{Options: vv.Options, MinMsg: sj.InvalidMinMsg, MaxMsg: sj.InvalidMaxMsg}
	if sj.ValueType == TypeString {
		if len(vr.Options) == 0 {
			return nil, fmt.Errorf("%w: %s is string-typed but declares no options", ErrBadSchema, name)
		}
		return vr, nil
	}
	switch sj.InvalidAction {
	case ActionWarn, ActionStop:
		vr.Action = sj.InvalidAction
	default:
		return nil, fmt.Errorf("%w: %s has invalid_action %q", ErrBadSchema, name, sj.InvalidAction)
	}
	var err error
	if vr.Min, err = decodeBound(name, vv.Min, sj.ValueType); err != nil {
		return nil, err
	}
	if vr.Max, err = decodeBound(name, vv.Max, sj.ValueType); err != nil {
		return nil, err
	}
	// "default" is only meaningful as a soft lower bound
	if vr.Min.Kind == BoundDefault && vr.Action != ActionWarn {
		return nil, fmt.Errorf("%w: %s uses a default min with action stop", ErrBadSchema, name)
	}
	if vr.Max.Kind == BoundDefault {
		return nil, fmt.Errorf("%w: %s uses default as a max bound", ErrBadSchema, name)
	}
	return vr, nil
}

func decodeBound(name string, raw json.RawMessage, vt ValueType) (Bound, error) {
	if len(raw) == 0 {
		return Bound{}, fmt.Errorf("%w: %s valid_values missing min or max", ErrBadSchema, name)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Bound{}, fmt.Errorf("%w: %s bound %s", ErrBadSchema, name, raw)
	}
	if s, ok := v.(string); ok {
		if s == "default" {
			return Bound{Kind: BoundDefault}, nil
		}
		return Bound{Kind: BoundParam, Param: Canonical(s)}, nil
	}
	cell, err := CoerceCell(v, vt)
	if err != nil {
		return Bound{}, fmt.Errorf("%w: %s: %v", ErrBadSchema, name, err)
	}
	return Bound{Kind: BoundLiteral, Literal: cell}, nil
}
