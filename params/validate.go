/*
validate.go - Range validation and diagnostics

PURPOSE:
  Checks every projected value against its declared valid range, for every
  year in the horizon. Out-of-range values with action=warn append to the
  warnings report; action=stop appends to the errors report. Reports are
  plain accumulated strings the caller can inspect or print; every line
  names the parameter, the year, and the violated constraint, and
  multi-violation reports are never truncated.

BOUND RESOLUTION:
  - literal bounds compare directly
  - "default" compares against the baseline (pre-reform) value projected
    for the same year
  - a parameter-name bound compares against that OTHER parameter's value
    in the same year (cross-parameter consistency, e.g. a credit floor
    that may not exceed its own ceiling)

  Boolean parameters are only type-checked (which happens structurally in
  reform.go), never range-checked. String parameters are checked against
  their declared options.

SEE ALSO:
  - reform.go: Runs ValidateValues after installing overrides
  - schema.go: Range and Bound definitions
*/
package params

import (
	"fmt"
)

// ValidateValues checks the named parameters across the full horizon,
// appending to the warnings/errors reports. Callers normally validate
// everything (Schema().Names()); a subset is allowed for diagnostics.
func (p *Parameters) ValidateValues(names []string) {
	for _, name := range names {
		sp, ok := p.schema.Spec(name)
		if !ok || sp.ValidRange == nil {
			continue
		}
		switch sp.ValueType {
		case TypeBoolean:
			// structurally guaranteed true/false; nothing numeric to check
		case TypeString:
			p.validateOptions(sp)
		default:
			p.validateNumericRange(sp)
		}
	}
}

func (p *Parameters) validateOptions(sp *Spec) {
	rows := p.arrays[sp.Name]
	for i, row := range rows {
		for _, cell := range row {
			if !contains(sp.ValidRange.Options, cell.Text) {
				p.errors += fmt.Sprintf("ERROR: %d %s value %q not in %v\n",
					p.schema.StartYear()+i, sp.Name, cell.Text, sp.ValidRange.Options)
			}
		}
	}
}

func (p *Parameters) validateNumericRange(sp *Spec) {
	rows := p.arrays[sp.Name]
	vr := sp.ValidRange
	for i, row := range rows {
		year := p.schema.StartYear() + i
		if minRow, label, ok := p.resolveBound(sp, vr.Min, i); ok {
			p.checkRow(sp, year, row, minRow, true, label, vr)
		}
		if maxRow, label, ok := p.resolveBound(sp, vr.Max, i); ok {
			p.checkRow(sp, year, row, maxRow, false, label, vr)
		}
	}
}

// resolveBound produces the bound row in effect for one year, plus a
// label used in report lines ("min value X", "min _CTC_c value X").
func (p *Parameters) resolveBound(sp *Spec, b Bound, yearIdx int) (Row, string, bool) {
	switch b.Kind {
	case BoundLiteral:
		row := make(Row, len(p.arrays[sp.Name][yearIdx]))
		for i := range row {
			row[i] = b.Literal
		}
		return row, "", true
	case BoundDefault:
		base := p.baseline[sp.Name]
		if yearIdx >= len(base) {
			return nil, "", false
		}
		return base[yearIdx], "", true
	case BoundParam:
		other := p.arrays[b.Param][yearIdx]
		width := len(p.arrays[sp.Name][yearIdx])
		row := make(Row, width)
		for i := range row {
			if len(other) == width {
				row[i] = other[i]
			} else {
				row[i] = other[0] // scalar bound broadcast across the vector
			}
		}
		return row, b.Param + " ", true
	}
	return nil, "", false
}

func (p *Parameters) checkRow(sp *Spec, year int, row, bound Row, isMin bool, label string, vr *Range) {
	violated := false
	for i := range row {
		if isMin && row[i].Number.LessThan(bound[i].Number) {
			violated = true
		}
		if !isMin && row[i].Number.GreaterThan(bound[i].Number) {
			violated = true
		}
	}
	if !violated {
		return
	}
	word := "WARNING"
	relation := "<"
	boundName := "min"
	extra := vr.MinMsg
	if vr.Action == ActionStop {
		word = "ERROR"
	}
	if !isMin {
		relation = ">"
		boundName = "max"
		extra = vr.MaxMsg
	}
	line := fmt.Sprintf("%s: %d %s value %s %s %s%s value %s",
		word, year, sp.Name, row.Display(sp.ValueType),
		relation, label, boundName, bound.Display(sp.ValueType))
	if extra != "" {
		line += " " + extra
	}
	line += "\n"
	if vr.Action == ActionStop {
		p.errors += line
	} else {
		p.warnings += line
	}
}

// AddWarning appends a caller-supplied line to the warnings report, e.g.
// a redefined-parameter notice from a schema revision.
func (p *Parameters) AddWarning(line string) {
	p.warnings += line
	if len(line) > 0 && line[len(line)-1] != '\n' {
		p.warnings += "\n"
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
