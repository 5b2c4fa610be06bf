/*
Package factory converts JSON reform documents into typed parameter
reforms.

PURPOSE:
  Reform authors write JSON, not Go. This package reads their documents
  (inline text, a local .json file, or an http(s) URL), strips the //
  comments the format allows, validates the top-level grouping, and
  converts string year keys into the typed params.Reform the engine
  consumes.

JSON REFORM FORMAT:
  // a policy reform document
  {
    "policy": {
      "2020": {"_II_em": [9000]},          // level override
      "2021": {"_II_em_cpi": false}        // indexing-flag override
    }
  }

  An assumption document carries the other parameter groups:
  {
    "consumption": {"2020": {"_MPC_e19800": [0.2]}},
    "growdiff_baseline": {},
    "growdiff_response": {}
  }

  A "policy" key in the assumption document, or an assumption group in
  the policy document, is a misplaced-key error: silently accepting it
  would silently drop the provisions.

SEE ALSO:
  - params/reform.go: the typed reform protocol these documents feed
  - documentation.go: renders the parsed documents for reform authors
*/
package factory

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/warp/tax-engine/params"
)

// ===== DOCUMENT STRUCTURE =====

// ParamDocuments is the parsed content of one policy reform document
// and one economic assumption document. Absent groups are empty, never
// nil, so callers can range freely.
type ParamDocuments struct {
	Policy           params.Reform
	Consumption      params.Reform
	GrowDiffBaseline params.Reform
	GrowDiffResponse params.Reform
}

// assumption group keys, in document order
var assumpKeys = []string{"consumption", "growdiff_baseline", "growdiff_response"}

// ReadParamObjects reads a policy reform document and an assumption
// document. Either argument may be empty (no changes), inline JSON
// text, a path to a .json file, or an http(s) URL ending in .json.
func ReadParamObjects(reform, assump string) (*ParamDocuments, error) {
	docs := &ParamDocuments{
		Policy:           params.Reform{},
		Consumption:      params.Reform{},
		GrowDiffBaseline: params.Reform{},
		GrowDiffResponse: params.Reform{},
	}
	if reform != "" {
		text, err := fetchText(reform)
		if err != nil {
			return nil, fmt.Errorf("factory: reading reform document: %w", err)
		}
		if err := docs.parseReform(text); err != nil {
			return nil, err
		}
	}
	if assump != "" {
		text, err := fetchText(assump)
		if err != nil {
			return nil, fmt.Errorf("factory: reading assumption document: %w", err)
		}
		if err := docs.parseAssump(text); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (d *ParamDocuments) parseReform(text string) error {
	top, err := decodeTop(text)
	if err != nil {
		return fmt.Errorf("factory: reform document: %w", err)
	}
	for key, raw := range top {
		switch key {
		case "policy":
			if d.Policy, err = parseYearMap(raw); err != nil {
				return fmt.Errorf("factory: reform document: %w", err)
			}
		case "consumption", "growdiff_baseline", "growdiff_response":
			return fmt.Errorf("factory: assumption group %q belongs in the assumption document", key)
		default:
			return fmt.Errorf("factory: reform document has unrecognized top-level key %q", key)
		}
	}
	return nil
}

func (d *ParamDocuments) parseAssump(text string) error {
	top, err := decodeTop(text)
	if err != nil {
		return fmt.Errorf("factory: assumption document: %w", err)
	}
	for key, raw := range top {
		switch key {
		case "consumption":
			if d.Consumption, err = parseYearMap(raw); err != nil {
				return fmt.Errorf("factory: assumption document: %w", err)
			}
		case "growdiff_baseline":
			if d.GrowDiffBaseline, err = parseYearMap(raw); err != nil {
				return fmt.Errorf("factory: assumption document: %w", err)
			}
		case "growdiff_response":
			if d.GrowDiffResponse, err = parseYearMap(raw); err != nil {
				return fmt.Errorf("factory: assumption document: %w", err)
			}
		case "policy":
			return fmt.Errorf("factory: the policy group belongs in the reform document")
		default:
			return fmt.Errorf("factory: assumption document has unrecognized top-level key %q", key)
		}
	}
	return nil
}

func decodeTop(text string) (map[string]json.RawMessage, error) {
	var top map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(StripComments(text)))
	dec.UseNumber()
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return top, nil
}

// parseYearMap converts {"2020": {"_name": [...]}} into a typed reform.
func parseYearMap(raw json.RawMessage) (params.Reform, error) {
	var byYear map[string]map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&byYear); err != nil {
		return nil, fmt.Errorf("parameter group is not a year mapping: %w", err)
	}
	reform := params.Reform{}
	for yearStr, mods := range byYear {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return nil, fmt.Errorf("%q is not a calendar-year key", yearStr)
		}
		pm := params.ParamMods{}
		for name, payload := range mods {
			var v any
			vdec := json.NewDecoder(strings.NewReader(string(payload)))
			vdec.UseNumber()
			if err := vdec.Decode(&v); err != nil {
				return nil, fmt.Errorf("year %d parameter %s: %w", year, name, err)
			}
			pm[name] = v
		}
		reform[year] = pm
	}
	return reform, nil
}

// ===== TEXT ACQUISITION =====

// fetchText resolves a document argument: URL, local file, or the
// JSON text itself.
func fetchText(src string) (string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		if !strings.HasSuffix(src, ".json") {
			return "", fmt.Errorf("URL %s does not name a .json document", src)
		}
		resp, err := http.Get(src)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("GET %s: %s", src, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
	if strings.HasSuffix(src, ".json") {
		body, err := os.ReadFile(src)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
	return src, nil
}

// StripComments removes // comments from reform JSON. Quoted strings
// are respected, so "http://example.com" survives.
func StripComments(text string) string {
	var out strings.Builder
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(text) && text[i+1] == '/' {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

// Years returns a reform's years in ascending order.
func Years(r params.Reform) []int {
	out := make([]int, 0, len(r))
	for y := range r {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
