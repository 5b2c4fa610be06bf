/*
handlers.go - HTTP API handlers for the tax parameter engine

PURPOSE:
  Exposes the parameter engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Session policy:
    GET    /api/policy                  Session policy state
    POST   /api/policy/reforms          Apply a reform document
    POST   /api/policy/year             Move the year cursor forward
    POST   /api/policy/reset            Fresh current-law policy

  Parameters:
    GET    /api/parameters              Metadata for every parameter
    GET    /api/parameters/{name}       Metadata for one parameter
    GET    /api/parameters/{name}/values Projected values (?full=1)

  Documentation:
    POST   /api/documentation           Render reform documentation

  Reform registry:
    GET    /api/reforms                 List stored reform documents
    POST   /api/reforms                 Store a reform document
    GET    /api/reforms/{id}            Get one
    DELETE /api/reforms/{id}            Delete one

  Unit sets:
    GET    /api/unitsets                List filing-unit sets
    POST   /api/unitsets                Store a set
    GET    /api/unitsets/{id}           Get one
    DELETE /api/unitsets/{id}           Delete one

  Scenario runs:
    GET    /api/runs                    List runs (?status=...)
    POST   /api/runs                    Create a pending run
    POST   /api/runs/{id}/execute       Execute a run synchronously
    GET    /api/runs/{id}               Get one

ARCHITECTURE:
  Handler holds the store and one session policy. The session policy
  carries the year cursor and any applied reforms; reset rebuilds it
  from the embedded current-law file. A mutex serializes mutation since
  the engine itself is not safe for concurrent writers.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, structural reform errors
  - 404: Resource not found
  - 409: Conflict (duplicate reform name)
  - 422: Reform values outside legal bounds
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Scenario run execution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/tax-engine/assump"
	"github.com/warp/tax-engine/factory"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
	"github.com/warp/tax-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	mu  sync.Mutex
	pol *policy.Policy
}

// NewHandler creates a handler with a fresh current-law session policy.
func NewHandler(store *sqlite.Store) (*Handler, error) {
	pol, err := policy.New()
	if err != nil {
		return nil, err
	}
	return &Handler{Store: store, pol: pol}, nil
}

// =============================================================================
// SESSION POLICY HANDLERS
// =============================================================================

// GetPolicyState returns the session policy's window, cursor, and any
// accumulated validation reports.
func (h *Handler) GetPolicyState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.policyState())
}

func (h *Handler) policyState() PolicyStateDTO {
	return PolicyStateDTO{
		CurrentYear: h.pol.CurrentYear(),
		StartYear:   h.pol.StartYear(),
		EndYear:     h.pol.EndYear(),
		Warnings:    h.pol.Warnings(),
		Errors:      h.pol.Errors(),
	}
}

// ApplyReform parses a reform document and applies it to the session
// policy. Growth-difference assumptions adjust the growth factors
// before the policy provisions apply. The whole document lands on a
// copy of the session policy, so a rejected reform leaves the session
// exactly as it was.
func (h *Handler) ApplyReform(w http.ResponseWriter, r *http.Request) {
	var req ApplyReformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	docs, err := factory.ReadParamObjects(req.Reform, req.Assumptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed reform document", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	trial := h.pol.DeepCopy()
	if err := applyGrowDiffs(trial, docs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid growth-difference assumption", err)
		return
	}

	opts := params.UpdateOptions{RaiseErrors: true}
	if req.RaiseErrors != nil {
		opts.RaiseErrors = *req.RaiseErrors
	}
	if err := trial.ImplementReformWithOptions(docs.Policy, opts); err != nil {
		var report *params.ValidationReport
		if errors.As(err, &report) {
			writeError(w, http.StatusUnprocessableEntity, "Reform values out of bounds", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Reform rejected", err)
		return
	}

	h.pol = trial
	writeJSON(w, http.StatusOK, h.policyState())
}

// applyGrowDiffs folds growdiff baseline and response documents into
// the policy's growth factors and re-derives parameter tails.
func applyGrowDiffs(pol *policy.Policy, docs *factory.ParamDocuments) error {
	if len(docs.GrowDiffBaseline) == 0 && len(docs.GrowDiffResponse) == 0 {
		return nil
	}
	for _, reform := range []params.Reform{docs.GrowDiffBaseline, docs.GrowDiffResponse} {
		if len(reform) == 0 {
			continue
		}
		gd, err := assump.NewGrowDiff()
		if err != nil {
			return err
		}
		if err := gd.Update(reform); err != nil {
			return err
		}
		if err := gd.ApplyTo(pol.GrowFactors()); err != nil {
			return err
		}
	}
	pol.Reindex()
	return nil
}

// SetYear advances the session policy's year cursor.
func (h *Handler) SetYear(w http.ResponseWriter, r *http.Request) {
	var req SetYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.pol.SetYear(req.Year); err != nil {
		writeError(w, http.StatusBadRequest, "Cannot set year", err)
		return
	}
	writeJSON(w, http.StatusOK, h.policyState())
}

// ResetPolicy replaces the session policy with fresh current law.
func (h *Handler) ResetPolicy(w http.ResponseWriter, r *http.Request) {
	pol, err := policy.New()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rebuild policy", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.pol = pol
	writeJSON(w, http.StatusOK, h.policyState())
}

// =============================================================================
// PARAMETER HANDLERS
// =============================================================================

// ListParameters returns metadata for every parameter.
func (h *Handler) ListParameters(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, h.pol.Metadata())
}

// GetParameter returns metadata for one parameter.
func (h *Handler) GetParameter(w http.ResponseWriter, r *http.Request) {
	name := params.Canonical(chi.URLParam(r, "name"))

	h.mu.Lock()
	defer h.mu.Unlock()

	meta, ok := h.pol.Metadata()[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown parameter", nil)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// GetParameterValues returns the projected value series for one
// parameter, from the current year by default or the whole budget
// window with ?full=1.
func (h *Handler) GetParameterValues(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	full := r.URL.Query().Get("full") != ""

	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.pol.Lookup(name, full)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown parameter", err)
		return
	}
	flags, _ := h.pol.CPIFlags(name)

	startYear := h.pol.CurrentYear()
	if full {
		startYear = h.pol.StartYear()
	}

	dto := ParameterValuesDTO{Name: params.Canonical(name)}
	for i, row := range rows {
		dto.Years = append(dto.Years, startYear+i)
		cells := make([]string, len(row))
		for j := range row {
			cells[j] = row[j].Number.String()
		}
		dto.Values = append(dto.Values, cells)
	}
	if full {
		dto.CPIFlags = flags
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// DOCUMENTATION HANDLER
// =============================================================================

// RenderDocumentation renders the plain-text documentation of a reform
// document against current law.
func (h *Handler) RenderDocumentation(w http.ResponseWriter, r *http.Request) {
	var req ApplyReformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	docs, err := factory.ReadParamObjects(req.Reform, req.Assumptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed reform document", err)
		return
	}
	text, err := factory.ReformDocumentation(docs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cannot document reform", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentationResponse{Documentation: text})
}

// =============================================================================
// REFORM REGISTRY HANDLERS
// =============================================================================

// ListReforms returns all stored reform documents.
func (h *Handler) ListReforms(w http.ResponseWriter, r *http.Request) {
	reforms, err := h.Store.ListReforms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reforms", err)
		return
	}

	dtos := make([]ReformDTO, len(reforms))
	for i, rec := range reforms {
		dtos[i] = toReformDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateReform validates and stores a named reform document.
func (h *Handler) CreateReform(w http.ResponseWriter, r *http.Request) {
	var req CreateReformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Reform name is required", nil)
		return
	}

	// parse up front so the registry never holds an unreadable document
	if _, err := factory.ReadParamObjects(req.PolicyJSON, req.AssumptionJSON); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed reform document", err)
		return
	}

	rec := sqlite.ReformRecord{
		ID:             fmt.Sprintf("reform-%d", time.Now().UnixNano()),
		Name:           req.Name,
		Description:    req.Description,
		PolicyJSON:     req.PolicyJSON,
		AssumptionJSON: req.AssumptionJSON,
	}
	if err := h.Store.SaveReform(r.Context(), rec); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			writeError(w, http.StatusConflict, "A reform with that name already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to store reform", err)
		return
	}

	saved, err := h.Store.GetReform(r.Context(), rec.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back reform", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReformDTO(*saved))
}

// GetReform returns one stored reform document.
func (h *Handler) GetReform(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetReform(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get reform", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Reform not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toReformDTO(*rec))
}

// DeleteReform removes a stored reform document.
func (h *Handler) DeleteReform(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteReform(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete reform", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// UNIT SET HANDLERS
// =============================================================================

// ListUnitSets returns all stored filing-unit sets.
func (h *Handler) ListUnitSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.Store.ListUnitSets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list unit sets", err)
		return
	}

	dtos := make([]UnitSetDTO, 0, len(sets))
	for _, rec := range sets {
		dto, err := toUnitSetDTO(rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt unit set", err)
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUnitSet validates and stores a filing-unit set.
func (h *Handler) CreateUnitSet(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || len(req.Units) == 0 {
		writeError(w, http.StatusBadRequest, "Name and at least one unit are required", nil)
		return
	}
	if req.DataYear == 0 {
		req.DataYear = policy.JSONStartYear
	}

	// conversion catches bad statuses and malformed amounts now, not
	// at run time
	for _, u := range req.Units {
		if _, err := u.ToFilingUnit(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid filing unit", err)
			return
		}
	}

	unitsJSON, err := json.Marshal(req.Units)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode units", err)
		return
	}

	rec := sqlite.UnitSetRecord{
		ID:        fmt.Sprintf("unitset-%d", time.Now().UnixNano()),
		Name:      req.Name,
		DataYear:  req.DataYear,
		UnitsJSON: string(unitsJSON),
	}
	if err := h.Store.SaveUnitSet(r.Context(), rec); err != nil {
		if sqlite.IsUniqueConstraintError(err) {
			writeError(w, http.StatusConflict, "A unit set with that name already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to store unit set", err)
		return
	}

	writeJSON(w, http.StatusCreated, UnitSetDTO{
		ID: rec.ID, Name: rec.Name, DataYear: rec.DataYear, Units: req.Units,
	})
}

// GetUnitSet returns one stored unit set.
func (h *Handler) GetUnitSet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetUnitSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get unit set", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Unit set not found", nil)
		return
	}
	dto, err := toUnitSetDTO(*rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt unit set", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteUnitSet removes a stored unit set.
func (h *Handler) DeleteUnitSet(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteUnitSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete unit set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func toReformDTO(rec sqlite.ReformRecord) ReformDTO {
	return ReformDTO{
		ID:             rec.ID,
		Name:           rec.Name,
		Description:    rec.Description,
		PolicyJSON:     rec.PolicyJSON,
		AssumptionJSON: rec.AssumptionJSON,
		Version:        rec.Version,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      rec.UpdatedAt.Format(time.RFC3339),
	}
}

func toUnitSetDTO(rec sqlite.UnitSetRecord) (UnitSetDTO, error) {
	var units []FilingUnitDTO
	if err := json.Unmarshal([]byte(rec.UnitsJSON), &units); err != nil {
		return UnitSetDTO{}, err
	}
	return UnitSetDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		DataYear:  rec.DataYear,
		Units:     units,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}, nil
}
