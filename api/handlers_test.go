/*
handlers_test.go - HTTP surface tests

Exercises the router end to end with httptest: session policy state
and year cursor, reform application, parameter metadata and values,
documentation rendering, and the reform/unit-set registries.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/store/sqlite"
)

// newTestAPI builds a router over an in-memory store.
func newTestAPI(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h, err := NewHandler(store)
	require.NoError(t, err)
	return h, NewRouter(h)
}

// do performs one request and decodes the JSON response into out.
func do(t *testing.T, router http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

// ===== SESSION POLICY =====

func TestPolicyStateAndYearCursor(t *testing.T) {
	_, router := newTestAPI(t)

	var state PolicyStateDTO
	w := do(t, router, "GET", "/api/policy", nil, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2013, state.CurrentYear)
	assert.Equal(t, 2013, state.StartYear)
	assert.Equal(t, 2030, state.EndYear)

	w = do(t, router, "POST", "/api/policy/year", SetYearRequest{Year: 2016}, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2016, state.CurrentYear)

	// the cursor only moves forward
	w = do(t, router, "POST", "/api/policy/year", SetYearRequest{Year: 2014}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyReformEndpoint(t *testing.T) {
	_, router := newTestAPI(t)

	w := do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform: `{"policy": {"2015": {"_II_em": [5000]}}}`,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var values ParameterValuesDTO
	w = do(t, router, "GET", "/api/parameters/_II_em/values?full=1", nil, &values)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, values.Years, 18)
	assert.Equal(t, 2015, values.Years[2])
	assert.Equal(t, "5000", values.Values[2][0])
}

func TestApplyReformRejectsStructuralErrors(t *testing.T) {
	_, router := newTestAPI(t)

	w := do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform: `{"policy": {"2015": {"_II_emm": [5000]}}}`,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyReformReportsBoundViolations(t *testing.T) {
	_, router := newTestAPI(t)

	// the refundable ceiling may not exceed the child credit ceiling
	w := do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform: `{"policy": {"2015": {"_ACTC_c": [1500]}}}`,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// with raise_errors false the report lands on the session state
	raise := false
	var state PolicyStateDTO
	w = do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform:      `{"policy": {"2015": {"_ACTC_c": [1500]}}}`,
		RaiseErrors: &raise,
	}, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, state.Errors, "_ACTC_c")
}

func TestRejectedReformLeavesSessionUntouched(t *testing.T) {
	_, router := newTestAPI(t)

	var before ParameterValuesDTO
	w := do(t, router, "GET", "/api/parameters/_II_em/values?full=1", nil, &before)
	require.Equal(t, http.StatusOK, w.Code)

	// a structurally invalid provision rejects the indexing offset
	// riding in the same document
	w = do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform: `{"policy": {"2020": {"_cpi_offset": [-0.0025]}, "2021": {"_unknown": [1]}}}`,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// an out-of-bounds provision rejects the growdiff assumptions too
	w = do(t, router, "POST", "/api/policy/reforms", ApplyReformRequest{
		Reform:      `{"policy": {"2015": {"_ACTC_c": [1500]}}}`,
		Assumptions: `{"growdiff_baseline": {"2016": {"_ACPIU": [0.01]}}}`,
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var after ParameterValuesDTO
	w = do(t, router, "GET", "/api/parameters/_II_em/values?full=1", nil, &after)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before.Values, after.Values)

	var state PolicyStateDTO
	w = do(t, router, "GET", "/api/policy", nil, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, state.Errors)
}

func TestResetPolicy(t *testing.T) {
	_, router := newTestAPI(t)

	w := do(t, router, "POST", "/api/policy/year", SetYearRequest{Year: 2020}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state PolicyStateDTO
	w = do(t, router, "POST", "/api/policy/reset", nil, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2013, state.CurrentYear)
}

// ===== PARAMETERS =====

func TestParameterMetadata(t *testing.T) {
	_, router := newTestAPI(t)

	var all map[string]params.Meta
	w := do(t, router, "GET", "/api/parameters", nil, &all)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, all, "_II_em")
	assert.Equal(t, "real", all["_II_em"].ValueType)

	// names canonicalize with or without the underscore
	var meta params.Meta
	w = do(t, router, "GET", "/api/parameters/II_em", nil, &meta)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "_II_em", meta.Name)

	w = do(t, router, "GET", "/api/parameters/_nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParameterValuesFromCurrentYear(t *testing.T) {
	_, router := newTestAPI(t)

	w := do(t, router, "POST", "/api/policy/year", SetYearRequest{Year: 2017}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var values ParameterValuesDTO
	w = do(t, router, "GET", "/api/parameters/_CTC_c/values", nil, &values)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, values.Years)
	assert.Equal(t, 2017, values.Years[0])
	assert.Equal(t, "1000", values.Values[0][0])
	assert.Nil(t, values.CPIFlags)
}

// ===== DOCUMENTATION =====

func TestDocumentationEndpoint(t *testing.T) {
	_, router := newTestAPI(t)

	var resp DocumentationResponse
	w := do(t, router, "POST", "/api/documentation", ApplyReformRequest{Reform: ""}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(resp.Documentation, "REFORM DOCUMENTATION\n"))
	assert.Contains(t, resp.Documentation, "none: using current-law policy parameters")
	assert.Contains(t, resp.Documentation, "none: using default baseline growth assumptions")
}

// ===== REFORM REGISTRY =====

func TestReformRegistry(t *testing.T) {
	_, router := newTestAPI(t)

	var created ReformDTO
	w := do(t, router, "POST", "/api/reforms", CreateReformRequest{
		Name:       "bigger-exemption",
		PolicyJSON: `{"policy": {"2016": {"_II_em": [6000]}}}`,
	}, &created)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, created.Version)
	require.NotEmpty(t, created.ID)

	// duplicate names conflict
	w = do(t, router, "POST", "/api/reforms", CreateReformRequest{
		Name:       "bigger-exemption",
		PolicyJSON: `{"policy": {}}`,
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// unreadable documents never reach the registry
	w = do(t, router, "POST", "/api/reforms", CreateReformRequest{
		Name:       "broken",
		PolicyJSON: `{"growdiff_baseline": {}}`,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var listed []ReformDTO
	w = do(t, router, "GET", "/api/reforms", nil, &listed)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, listed, 1)

	w = do(t, router, "DELETE", "/api/reforms/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", "/api/reforms/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== UNIT SETS =====

func TestUnitSetValidation(t *testing.T) {
	_, router := newTestAPI(t)

	w := do(t, router, "POST", "/api/unitsets", CreateUnitSetRequest{
		Name: "bad",
		Units: []FilingUnitDTO{
			{ID: "x", Status: "married", Age: 40},
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/unitsets", CreateUnitSetRequest{
		Name: "bad-amount",
		Units: []FilingUnitDTO{
			{ID: "x", Status: "single", Age: 40, WageSelf: "lots"},
		},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var created UnitSetDTO
	w = do(t, router, "POST", "/api/unitsets", CreateUnitSetRequest{
		Name: "good",
		Units: []FilingUnitDTO{
			{ID: "x", Status: "single", Age: 40, WageSelf: "50000"},
		},
	}, &created)
	require.Equal(t, http.StatusCreated, w.Code)
	// the data year defaults to the schema start
	assert.Equal(t, 2013, created.DataYear)

	var fetched UnitSetDTO
	w = do(t, router, "GET", "/api/unitsets/"+created.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fetched.Units, 1)
	assert.Equal(t, "50000", fetched.Units[0].WageSelf)
}
