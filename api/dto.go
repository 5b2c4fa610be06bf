/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Dollar amounts travel as JSON strings ("50000", "0.25") so clients
  never see float rounding. Filing-unit conversion parses them into
  decimals and rejects malformed input before anything runs.

SEE ALSO:
  - handlers.go: Uses these types
  - params/parameters.go: Meta, the parameter-metadata shape
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/calc"
)

// =============================================================================
// POLICY SESSION TYPES
// =============================================================================

// PolicyStateDTO describes the session policy.
type PolicyStateDTO struct {
	CurrentYear int    `json:"current_year"`
	StartYear   int    `json:"start_year"`
	EndYear     int    `json:"end_year"`
	Warnings    string `json:"warnings,omitempty"`
	Errors      string `json:"errors,omitempty"`
}

// ParameterValuesDTO is one parameter's projected values.
type ParameterValuesDTO struct {
	Name     string     `json:"name"`
	Years    []int      `json:"years"`
	Values   [][]string `json:"values"`
	CPIFlags []bool     `json:"cpi_flags,omitempty"`
}

// ApplyReformRequest applies a reform document to the session policy.
// Reform and Assumptions are document texts (or file paths / URLs).
type ApplyReformRequest struct {
	Reform      string `json:"reform"`
	Assumptions string `json:"assumptions,omitempty"`
	RaiseErrors *bool  `json:"raise_errors,omitempty"`
}

// SetYearRequest moves the session policy's year cursor.
type SetYearRequest struct {
	Year int `json:"year"`
}

// DocumentationResponse wraps the rendered reform documentation.
type DocumentationResponse struct {
	Documentation string `json:"documentation"`
}

// =============================================================================
// REFORM REGISTRY TYPES
// =============================================================================

// ReformDTO represents a stored reform document.
type ReformDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	PolicyJSON     string `json:"policy_json"`
	AssumptionJSON string `json:"assumption_json,omitempty"`
	Version        int    `json:"version"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// CreateReformRequest stores a named reform document.
type CreateReformRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	PolicyJSON     string `json:"policy_json"`
	AssumptionJSON string `json:"assumption_json,omitempty"`
}

// =============================================================================
// UNIT SET TYPES
// =============================================================================

// FilingUnitDTO is the JSON shape of one filing unit.
type FilingUnitDTO struct {
	ID     string `json:"id"`
	Weight string `json:"weight,omitempty"`
	Status string `json:"status"`

	Age         int  `json:"age"`
	SpouseAge   int  `json:"spouse_age,omitempty"`
	Blind       bool `json:"blind,omitempty"`
	SpouseBlind bool `json:"spouse_blind,omitempty"`

	NumDependents      int  `json:"num_dependents,omitempty"`
	NumChildren        int  `json:"num_children,omitempty"`
	NumEITCKids        int  `json:"num_eitc_kids,omitempty"`
	ClaimedAsDependent bool `json:"claimed_as_dependent,omitempty"`

	WageSelf   string `json:"wage_self,omitempty"`
	WageSpouse string `json:"wage_spouse,omitempty"`
	Interest   string `json:"interest,omitempty"`
	Dividends  string `json:"dividends,omitempty"`
	CapGains   string `json:"cap_gains,omitempty"`

	MedicalExpenses string `json:"medical_expenses,omitempty"`
	StateLocalTaxes string `json:"state_local_taxes,omitempty"`
	RealEstateTaxes string `json:"real_estate_taxes,omitempty"`
	CasualtyLosses  string `json:"casualty_losses,omitempty"`
	MiscExpenses    string `json:"misc_expenses,omitempty"`
	InterestPaid    string `json:"interest_paid,omitempty"`
	Charity         string `json:"charity,omitempty"`

	ChildCareExpenses string `json:"child_care_expenses,omitempty"`
}

// UnitSetDTO represents a stored filing-unit set.
type UnitSetDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	DataYear  int             `json:"data_year"`
	Units     []FilingUnitDTO `json:"units"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// CreateUnitSetRequest stores a filing-unit set.
type CreateUnitSetRequest struct {
	Name     string          `json:"name"`
	DataYear int             `json:"data_year"`
	Units    []FilingUnitDTO `json:"units"`
}

// filing statuses on the wire
var statusNames = map[string]calc.FilingStatus{
	"single":            calc.Single,
	"joint":             calc.Joint,
	"separate":          calc.Separate,
	"head_of_household": calc.HeadOfHousehold,
	"widow":             calc.Widow,
}

// ToFilingUnit converts the DTO, rejecting unknown statuses and
// malformed amounts.
func (d FilingUnitDTO) ToFilingUnit() (*calc.FilingUnit, error) {
	status, ok := statusNames[d.Status]
	if !ok {
		return nil, fmt.Errorf("unit %s: unknown filing status %q", d.ID, d.Status)
	}
	u := &calc.FilingUnit{
		ID:                 d.ID,
		Status:             status,
		Age:                d.Age,
		SpouseAge:          d.SpouseAge,
		Blind:              d.Blind,
		SpouseBlind:        d.SpouseBlind,
		NumDependents:      d.NumDependents,
		NumChildren:        d.NumChildren,
		NumEITCKids:        d.NumEITCKids,
		ClaimedAsDependent: d.ClaimedAsDependent,
	}

	fields := []struct {
		raw  string
		dst  *decimal.Decimal
		name string
	}{
		{d.Weight, &u.Weight, "weight"},
		{d.WageSelf, &u.WageSelf, "wage_self"},
		{d.WageSpouse, &u.WageSpouse, "wage_spouse"},
		{d.Interest, &u.Interest, "interest"},
		{d.Dividends, &u.Dividends, "dividends"},
		{d.CapGains, &u.CapGains, "cap_gains"},
		{d.MedicalExpenses, &u.MedicalExpenses, "medical_expenses"},
		{d.StateLocalTaxes, &u.StateLocalTaxes, "state_local_taxes"},
		{d.RealEstateTaxes, &u.RealEstateTaxes, "real_estate_taxes"},
		{d.CasualtyLosses, &u.CasualtyLosses, "casualty_losses"},
		{d.MiscExpenses, &u.MiscExpenses, "misc_expenses"},
		{d.InterestPaid, &u.InterestPaid, "interest_paid"},
		{d.Charity, &u.Charity, "charity"},
		{d.ChildCareExpenses, &u.ChildCareExpenses, "child_care_expenses"},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("unit %s: bad %s %q", d.ID, f.name, f.raw)
		}
		*f.dst = v
	}
	// weight defaults to 1 so bare unit sets still aggregate
	if d.Weight == "" {
		u.Weight = decimal.NewFromInt(1)
	}
	return u, nil
}

// =============================================================================
// SCENARIO RUN TYPES
// =============================================================================

// CreateRunRequest starts a scenario run. ReformID empty means current
// law. Years default to the unit set's data year.
type CreateRunRequest struct {
	ReformID  string `json:"reform_id,omitempty"`
	UnitSetID string `json:"unit_set_id"`
	StartYear int    `json:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty"`
}

// YearTotalsDTO is one year's weighted aggregates.
type YearTotalsDTO struct {
	Year        int    `json:"year"`
	Payroll     string `json:"payroll"`
	IncomeTax   string `json:"income_tax"`
	CombinedTax string `json:"combined_tax"`
}

// RunResultsDTO is the results payload stored on a completed run.
type RunResultsDTO struct {
	Units  int             `json:"units"`
	Totals []YearTotalsDTO `json:"totals"`
}

// RunDTO represents a scenario run.
type RunDTO struct {
	ID          string         `json:"id"`
	ReformID    string         `json:"reform_id,omitempty"`
	UnitSetID   string         `json:"unit_set_id"`
	StartYear   int            `json:"start_year"`
	EndYear     int            `json:"end_year"`
	Status      string         `json:"status"`
	Results     *RunResultsDTO `json:"results,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
