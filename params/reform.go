/*
reform.go - The reform application protocol

PURPOSE:
  Update merges a sparse, year-keyed set of overrides into the projected
  arrays. Structural validation happens up front, before any mutation, so
  a malformed reform never partially applies. Application is deterministic
  and order-independent:

    1. Reform years are processed in ascending order.
    2. Within a year, cpi-flag overrides are applied before level
       overrides, independent of the order the caller supplied the keys.
       Flag and level changes at the same year are therefore commutative
       and both take effect starting that year.
    3. Every override re-derives the parameter's whole tail from the last
       explicitly installed row, discarding prior projections. A later
       reform touching an earlier year supersedes everything after it.

  After all overrides are installed, range validation runs over the full
  state. Violations with action=stop abort (the state is then invalid and
  the caller must discard it or restore from a prior DeepCopy); action=warn
  violations accumulate into the warnings report and do not block.

EDGE CASES:
  - An empty reform is a no-op that still runs validation.
  - A level override may carry several rows, covering consecutive years
    starting at the reform year; the rows must fit inside the horizon.
  - Value containers must match the declared shape; a scalar for a vector
    parameter (or the reverse) is a structural error.

SEE ALSO:
  - parameters.go: deriveTail, the shared projection step
  - validate.go: the range checks run after installation
*/
package params

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// UpdateOptions control reform post-validation behavior.
type UpdateOptions struct {
	// RaiseErrors aborts the update when the errors report is non-empty.
	RaiseErrors bool
}

// Update applies a reform with default options (RaiseErrors on).
func (p *Parameters) Update(reform Reform) error {
	return p.UpdateWithOptions(reform, UpdateOptions{RaiseErrors: true})
}

// CheckReform runs structural validation over a reform without applying
// it. Callers that split a reform into portions applied in stages use
// this to reject the whole document before any portion mutates state.
func (p *Parameters) CheckReform(reform Reform) error {
	_, err := p.compileReform(reform)
	return err
}

// UpdateWithOptions applies a reform. See the file comment for the
// protocol. Structural errors leave the state untouched; validation
// errors leave the overrides installed but reported.
func (p *Parameters) UpdateWithOptions(reform Reform, opts UpdateOptions) error {
	ops, err := p.compileReform(reform)
	if err != nil {
		return err
	}
	for _, yo := range ops {
		p.applyYear(yo)
	}
	p.warnings = ""
	p.errors = ""
	p.ValidateValues(p.schema.Names())
	if opts.RaiseErrors && p.errors != "" {
		return &ValidationReport{Report: p.errors}
	}
	return nil
}

// =============================================================================
// COMPILATION - Structural validation before any mutation
// =============================================================================

type flagOp struct {
	name  string // canonical base parameter name
	value bool
}

type levelOp struct {
	name string
	rows []Row
}

type yearOps struct {
	year   int
	flags  []flagOp
	levels []levelOp
}

func (p *Parameters) compileReform(reform Reform) ([]yearOps, error) {
	var ops []yearOps
	for year, mods := range reform {
		if mods == nil {
			return nil, &ReformError{Year: year, Msg: "year maps to nothing", Kind: ErrMalformedReform}
		}
		yo := yearOps{year: year}
		if year < p.schema.StartYear() || year > p.schema.EndYear() {
			return nil, &ReformError{Year: year, Kind: ErrYearOutOfRange,
				Msg: fmt.Sprintf("not in [%d, %d]", p.schema.StartYear(), p.schema.EndYear())}
		}
		if year < p.currentYear {
			return nil, &ReformError{Year: year, Kind: ErrReformsPast,
				Msg: fmt.Sprintf("current year already advanced to %d", p.currentYear)}
		}
		for name, payload := range mods {
			if strings.HasSuffix(Canonical(name), "_cpi") {
				op, err := p.compileFlag(year, name, payload)
				if err != nil {
					return nil, err
				}
				yo.flags = append(yo.flags, op)
			} else {
				op, err := p.compileLevel(year, name, payload)
				if err != nil {
					return nil, err
				}
				yo.levels = append(yo.levels, op)
			}
		}
		// deterministic application regardless of map iteration order
		sort.Slice(yo.flags, func(i, j int) bool { return yo.flags[i].name < yo.flags[j].name })
		sort.Slice(yo.levels, func(i, j int) bool { return yo.levels[i].name < yo.levels[j].name })
		ops = append(ops, yo)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].year < ops[j].year })
	return ops, nil
}

func (p *Parameters) compileFlag(year int, name string, payload any) (flagOp, error) {
	canonical := Canonical(name)
	if reason, removed := p.schema.RemovedReason(canonical); removed {
		return flagOp{}, &ReformError{Name: name, Year: year, Msg: reason, Kind: ErrRemovedParameter}
	}
	base := strings.TrimSuffix(canonical, "_cpi")
	sp, ok := p.schema.Spec(base)
	if !ok {
		if reason, removed := p.schema.RemovedReason(base); removed {
			return flagOp{}, &ReformError{Name: name, Year: year, Msg: reason, Kind: ErrRemovedParameter}
		}
		return flagOp{}, &ReformError{Name: name, Year: year,
			Msg: "no such parameter", Kind: ErrUnknownParameter}
	}
	if !sp.CPIInflatable {
		return flagOp{}, &ReformError{Name: name, Year: year,
			Msg: "parameter does not declare cpi_inflatable", Kind: ErrNotInflatable}
	}
	b, ok := payload.(bool)
	if !ok {
		return flagOp{}, &ReformError{Name: name, Year: year,
			Msg: fmt.Sprintf("cpi flag value %v is not a boolean", payload), Kind: ErrTypeMismatch}
	}
	return flagOp{name: sp.Name, value: b}, nil
}

func (p *Parameters) compileLevel(year int, name string, payload any) (levelOp, error) {
	canonical := Canonical(name)
	if reason, removed := p.schema.RemovedReason(canonical); removed {
		return levelOp{}, &ReformError{Name: name, Year: year, Msg: reason, Kind: ErrRemovedParameter}
	}
	sp, ok := p.schema.Spec(canonical)
	if !ok {
		return levelOp{}, &ReformError{Name: name, Year: year,
			Msg: "no such parameter", Kind: ErrUnknownParameter}
	}
	container, ok := payload.([]any)
	if !ok {
		return levelOp{}, &ReformError{Name: name, Year: year,
			Msg: "value container must be a list of per-year values", Kind: ErrMalformedReform}
	}
	if len(container) == 0 {
		return levelOp{}, &ReformError{Name: name, Year: year,
			Msg: "value container is empty", Kind: ErrMalformedReform}
	}
	lastIdx := (year - p.schema.StartYear()) + len(container) - 1
	if lastIdx >= p.schema.NumYears() {
		return levelOp{}, &ReformError{Name: name, Year: year, Kind: ErrYearOutOfRange,
			Msg: fmt.Sprintf("%d values starting in %d run past %d",
				len(container), year, p.schema.EndYear())}
	}
	rows := make([]Row, len(container))
	for i, elem := range container {
		row, err := coerceRow(elem, sp)
		if err != nil {
			return levelOp{}, &ReformError{Name: name, Year: year + i, Msg: err.Error(), Kind: unwrapKind(err)}
		}
		rows[i] = row
	}
	return levelOp{name: sp.Name, rows: rows}, nil
}

func coerceRow(elem any, sp *Spec) (Row, error) {
	cells, isVector := elem.([]any)
	if sp.Columns > 1 {
		if !isVector {
			return nil, fmt.Errorf("%w: scalar given for a %d-column parameter", ErrShapeMismatch, sp.Columns)
		}
		if len(cells) != sp.Columns {
			return nil, fmt.Errorf("%w: row has %d columns, want %d", ErrShapeMismatch, len(cells), sp.Columns)
		}
		row := make(Row, len(cells))
		for i, c := range cells {
			cell, err := CoerceCell(c, sp.ValueType)
			if err != nil {
				return nil, err
			}
			row[i] = cell
		}
		return row, nil
	}
	if isVector {
		return nil, fmt.Errorf("%w: vector given for a scalar parameter", ErrShapeMismatch)
	}
	cell, err := CoerceCell(elem, sp.ValueType)
	if err != nil {
		return nil, err
	}
	return Row{cell}, nil
}

func unwrapKind(err error) error {
	for _, kind := range []error{ErrTypeMismatch, ErrShapeMismatch} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrMalformedReform
}

// =============================================================================
// APPLICATION - Install overrides, re-derive tails
// =============================================================================

func (p *Parameters) applyYear(yo yearOps) {
	idx := yo.year - p.schema.StartYear()

	// flags first: a flag change re-derives everything after its year from
	// the value AT that year, so a level override in the same year lands
	// on the already-updated flag state
	for _, f := range yo.flags {
		flags := p.flags[f.name]
		for i := idx; i < len(flags); i++ {
			flags[i] = f.value
		}
		p.known[f.name] = idx
		p.deriveTail(f.name, idx+1)
	}

	for _, l := range yo.levels {
		rows := p.arrays[l.name]
		for j, r := range l.rows {
			rows[idx+j] = r.Clone()
		}
		p.known[l.name] = idx + len(l.rows) - 1
		p.deriveTail(l.name, idx+len(l.rows))
	}
}
