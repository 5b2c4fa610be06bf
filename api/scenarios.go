/*
scenarios.go - Scenario run execution

PURPOSE:
  Turns a stored reform document plus a stored filing-unit set into
  weighted liability totals per year. Runs are recorded in the store
  with a pending/running/completed/failed lifecycle, so the run table
  doubles as an audit history of every calculation served.

EXECUTION MODEL:
  POST /api/runs creates a pending row. Execution happens either
  synchronously (POST /api/runs/{id}/execute) or in the background via
  the RunScheduler. Both paths share executeRun, which:
    1. builds a fresh current-law policy
    2. applies the stored reform (growdiffs first, then provisions)
    3. decodes the unit set into filing units
    4. advances calculator and records year by year, aggregating
       weighted payroll, income-tax, and combined totals

SEE ALSO:
  - scheduler.go: Background execution of pending runs
  - calc/calculator.go: The per-year computation
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/tax-engine/assump"
	"github.com/warp/tax-engine/calc"
	"github.com/warp/tax-engine/factory"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
	"github.com/warp/tax-engine/store/sqlite"
)

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun validates the request and records a pending scenario run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	unitSet, err := h.Store.GetUnitSet(r.Context(), req.UnitSetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get unit set", err)
		return
	}
	if unitSet == nil {
		writeError(w, http.StatusNotFound, "Unit set not found", nil)
		return
	}

	if req.ReformID != "" {
		reform, err := h.Store.GetReform(r.Context(), req.ReformID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get reform", err)
			return
		}
		if reform == nil {
			writeError(w, http.StatusNotFound, "Reform not found", nil)
			return
		}
	}

	if req.StartYear == 0 {
		req.StartYear = unitSet.DataYear
	}
	if req.EndYear == 0 {
		req.EndYear = req.StartYear
	}
	if req.StartYear < unitSet.DataYear {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Start year %d precedes the unit set's data year %d", req.StartYear, unitSet.DataYear), nil)
		return
	}
	if req.EndYear < req.StartYear || req.EndYear > policy.LastBudgetYear {
		writeError(w, http.StatusBadRequest, "Invalid year range", nil)
		return
	}

	run := sqlite.ScenarioRun{
		ID:        fmt.Sprintf("run-%d", time.Now().UnixNano()),
		ReformID:  req.ReformID,
		UnitSetID: req.UnitSetID,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
	}
	if err := h.Store.CreateRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create run", err)
		return
	}

	saved, err := h.Store.GetRun(r.Context(), run.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back run", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(*saved))
}

// ExecuteRun runs a pending scenario synchronously and returns the
// completed (or failed) run.
func (h *Handler) ExecuteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if run.Status != sqlite.RunPending {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("Run is %s, only pending runs execute", run.Status), nil)
		return
	}

	if err := h.runScenario(r.Context(), *run); err != nil {
		// the failure is recorded on the run row; report it there
		_ = h.Store.FailRun(r.Context(), run.ID, err.Error())
	}

	done, err := h.Store.GetRun(r.Context(), id)
	if err != nil || done == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*done))
}

// GetRun returns one scenario run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// ListRuns returns scenario runs, optionally filtered by ?status=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears stored reforms, unit sets, and runs. Dev only.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// EXECUTION
// =============================================================================

// runScenario executes one run end to end, updating its row as it
// goes. A returned error means the run could not even be marked; run
// failures land on the row via FailRun inside.
func (h *Handler) runScenario(ctx context.Context, run sqlite.ScenarioRun) error {
	if err := h.Store.StartRun(ctx, run.ID); err != nil {
		return err
	}

	results, err := h.computeScenario(ctx, run)
	if err != nil {
		return h.Store.FailRun(ctx, run.ID, err.Error())
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return h.Store.FailRun(ctx, run.ID, err.Error())
	}
	return h.Store.CompleteRun(ctx, run.ID, string(payload))
}

func (h *Handler) computeScenario(ctx context.Context, run sqlite.ScenarioRun) (*RunResultsDTO, error) {
	pol, err := h.scenarioPolicy(ctx, run.ReformID)
	if err != nil {
		return nil, err
	}

	unitSet, err := h.Store.GetUnitSet(ctx, run.UnitSetID)
	if err != nil {
		return nil, err
	}
	if unitSet == nil {
		return nil, fmt.Errorf("unit set %s not found", run.UnitSetID)
	}

	var dtos []FilingUnitDTO
	if err := json.Unmarshal([]byte(unitSet.UnitsJSON), &dtos); err != nil {
		return nil, fmt.Errorf("decoding unit set %s: %w", run.UnitSetID, err)
	}
	units := make([]*calc.FilingUnit, len(dtos))
	for i, d := range dtos {
		if units[i], err = d.ToFilingUnit(); err != nil {
			return nil, err
		}
	}

	recs, err := calc.NewRecords(units, unitSet.DataYear)
	if err != nil {
		return nil, err
	}
	if err := pol.SetYear(run.StartYear); err != nil {
		return nil, err
	}
	c, err := calc.NewCalculator(pol, recs)
	if err != nil {
		return nil, err
	}

	results := &RunResultsDTO{Units: recs.Count()}
	for year := run.StartYear; year <= run.EndYear; year++ {
		if year > run.StartYear {
			if err := c.AdvanceToYear(year); err != nil {
				return nil, err
			}
		}
		results.Totals = append(results.Totals, YearTotalsDTO{
			Year:        year,
			Payroll:     c.WeightedTotal(func(r *calc.Result) decimal.Decimal { return r.Payroll }).String(),
			IncomeTax:   c.WeightedTotal(func(r *calc.Result) decimal.Decimal { return r.IncomeTax }).String(),
			CombinedTax: c.WeightedTotal(func(r *calc.Result) decimal.Decimal { return r.CombinedTax }).String(),
		})
	}
	return results, nil
}

// scenarioPolicy builds the policy a run evaluates under: fresh
// current law, plus the stored reform when one is named.
func (h *Handler) scenarioPolicy(ctx context.Context, reformID string) (*policy.Policy, error) {
	pol, err := policy.New()
	if err != nil {
		return nil, err
	}
	if reformID == "" {
		return pol, nil
	}

	rec, err := h.Store.GetReform(ctx, reformID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("reform %s not found", reformID)
	}

	docs, err := factory.ReadParamObjects(rec.PolicyJSON, rec.AssumptionJSON)
	if err != nil {
		return nil, err
	}
	for _, reform := range []params.Reform{docs.GrowDiffBaseline, docs.GrowDiffResponse} {
		if len(reform) == 0 {
			continue
		}
		gd, err := assump.NewGrowDiff()
		if err != nil {
			return nil, err
		}
		if err := gd.Update(reform); err != nil {
			return nil, err
		}
		if err := gd.ApplyTo(pol.GrowFactors()); err != nil {
			return nil, err
		}
		pol.Reindex()
	}
	if err := pol.ImplementReform(docs.Policy); err != nil {
		return nil, err
	}
	return pol, nil
}

func toRunDTO(run sqlite.ScenarioRun) RunDTO {
	dto := RunDTO{
		ID:        run.ID,
		ReformID:  run.ReformID,
		UnitSetID: run.UnitSetID,
		StartYear: run.StartYear,
		EndYear:   run.EndYear,
		Status:    run.Status,
		Error:     run.Error,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	if run.ResultsJSON != "" {
		var results RunResultsDTO
		if err := json.Unmarshal([]byte(run.ResultsJSON), &results); err == nil {
			dto.Results = &results
		}
	}
	return dto
}
