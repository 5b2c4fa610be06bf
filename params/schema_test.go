package params_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/warp/tax-engine/params"
)

// minimalSpec builds a one-parameter schema document around the given
// spec body so each test can corrupt exactly one loading rule.
func minimalSpec(body string) []byte {
	return []byte(`{"_p": {` + body + `}}`)
}

const validSpecBody = `
    "long_name": "Test parameter",
    "description": "A valid scalar.",
    "section_1": "S1", "section_2": "S2",
    "value_type": "real",
    "cpi_inflatable": true, "cpi_inflated": true,
    "row_label": ["2013", "2014"],
    "value": [1, 2],
    "valid_values": {"min": 0, "max": 10},
    "invalid_action": "stop", "invalid_minmsg": "", "invalid_maxmsg": ""`

func TestLoadSchema_ValidDocumentLoads(t *testing.T) {
	sch, err := params.LoadSchema(minimalSpec(validSpecBody), 2013, 5, nil)
	if err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	if sch.StartYear() != 2013 || sch.NumYears() != 5 || sch.EndYear() != 2017 {
		t.Errorf("horizon = [%d, %d]", sch.StartYear(), sch.EndYear())
	}
	sp, ok := sch.Spec("p") // plain name resolves too
	if !ok || sp.Name != "_p" {
		t.Errorf("Spec lookup failed: %v %v", sp, ok)
	}
}

func TestLoadSchema_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown value_type", strings.Replace(validSpecBody, `"real"`, `"complex"`, 1)},
		{"inflatable non-real", strings.Replace(validSpecBody, `"real"`, `"integer"`, 1)},
		{"inflated but not inflatable", strings.Replace(validSpecBody,
			`"cpi_inflatable": true`, `"cpi_inflatable": false`, 1)},
		{"row_label count mismatch", strings.Replace(validSpecBody,
			`["2013", "2014"]`, `["2013"]`, 1)},
		{"row_label not consecutive years", strings.Replace(validSpecBody,
			`["2013", "2014"]`, `["2013", "2016"]`, 1)},
		{"unknown invalid_action", strings.Replace(validSpecBody, `"stop"`, `"explode"`, 1)},
		{"default max bound", strings.Replace(validSpecBody, `"max": 10`, `"max": "default"`, 1)},
		{"default min with stop action", strings.Replace(validSpecBody, `"min": 0`, `"min": "default"`, 1)},
		{"dynamic bound to unknown parameter", strings.Replace(validSpecBody,
			`"max": 10`, `"max": "_ghost"`, 1)},
		{"more rows than horizon years", strings.Replace(validSpecBody,
			`"value": [1, 2]`, `"value": [1, 2, 3, 4, 5, 6]`, 1)},
		{"ragged vector rows", strings.Replace(validSpecBody,
			`"value": [1, 2]`, `"value": [[1, 2], [1, 2, 3]]`, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := params.LoadSchema(minimalSpec(tc.body), 2013, 5, nil)
			if !errors.Is(err, params.ErrBadSchema) {
				t.Errorf("want ErrBadSchema, got %v", err)
			}
		})
	}
}

func TestLoadSchema_RejectsNonPositiveHorizon(t *testing.T) {
	if _, err := params.LoadSchema(minimalSpec(validSpecBody), 0, 5, nil); !errors.Is(err, params.ErrBadSchema) {
		t.Errorf("zero start year: %v", err)
	}
	if _, err := params.LoadSchema(minimalSpec(validSpecBody), 2013, 0, nil); !errors.Is(err, params.ErrBadSchema) {
		t.Errorf("zero horizon: %v", err)
	}
}

func TestLoadSchema_RemovedNamesAreCanonicalized(t *testing.T) {
	sch, err := params.LoadSchema(minimalSpec(validSpecBody), 2013, 5,
		map[string]string{"gone": "superseded"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sch.RemovedReason("_gone"); !ok {
		t.Error("removed registry did not canonicalize the plain name")
	}
}
