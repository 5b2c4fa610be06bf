/*
documentation.go - Human-readable reform documentation

PURPOSE:
  Renders parsed reform documents as the plain-text summary reform
  authors check before running anything: which parameters change, in
  which years, to which values, annotated with each parameter's long
  name, description, and current-law baseline value for the same year.

OUTPUT SHAPE:
  REFORM DOCUMENTATION
  Baseline Growth-Difference Assumption Values by Year:
  none: using default baseline growth assumptions
  Policy Reform Parameter Values by Year:
  2020:
   _II_em : 9000
    name: Personal and dependent exemption amount
    desc: Subtracted from AGI in the calculation of taxable income, ...
    baseline_value: 4412.42...

  Reforms that change nothing in a group render the "none:" line, so
  the output always has both sections.
*/
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/tax-engine/assump"
	"github.com/warp/tax-engine/params"
	"github.com/warp/tax-engine/policy"
)

// ReformDocumentation renders the parsed documents. The policy section
// reflects post-reform values; baselines come from an untouched
// current-law projection under the documents' growth assumptions.
func ReformDocumentation(docs *ParamDocuments) (string, error) {
	doc := "REFORM DOCUMENTATION\n"

	gdSection, err := growdiffSection(docs.GrowDiffBaseline)
	if err != nil {
		return "", err
	}
	doc += "Baseline Growth-Difference Assumption Values by Year:\n" + gdSection

	polSection, err := policySection(docs)
	if err != nil {
		return "", err
	}
	doc += "Policy Reform Parameter Values by Year:\n" + polSection
	return doc, nil
}

func growdiffSection(reform params.Reform) (string, error) {
	if len(reform) == 0 {
		return "none: using default baseline growth assumptions\n", nil
	}
	gd, err := assump.NewGrowDiff()
	if err != nil {
		return "", err
	}
	baseline, err := assump.NewGrowDiff()
	if err != nil {
		return "", err
	}
	if err := gd.UpdateWithOptions(reform, params.UpdateOptions{RaiseErrors: false}); err != nil {
		return "", err
	}
	return valuesByYear(reform, gd.Parameters, baseline.Parameters), nil
}

func policySection(docs *ParamDocuments) (string, error) {
	if len(docs.Policy) == 0 {
		return "none: using current-law policy parameters\n", nil
	}
	gf := policy.NewGrowFactors()
	if len(docs.GrowDiffBaseline) > 0 {
		gd, err := assump.NewGrowDiff()
		if err != nil {
			return "", err
		}
		if err := gd.UpdateWithOptions(docs.GrowDiffBaseline, params.UpdateOptions{RaiseErrors: false}); err != nil {
			return "", err
		}
		if err := gd.ApplyTo(gf); err != nil {
			return "", err
		}
	}
	baseline, err := policy.NewWithGrowFactors(gf)
	if err != nil {
		return "", err
	}
	reformed := baseline.DeepCopy()
	if err := reformed.ImplementReformWithOptions(docs.Policy,
		params.UpdateOptions{RaiseErrors: false}); err != nil {
		return "", err
	}
	return valuesByYear(docs.Policy, reformed.Parameters, baseline.Parameters), nil
}

// valuesByYear renders one group: each reform year ascending, each
// changed parameter sorted, with metadata and the baseline value.
func valuesByYear(reform params.Reform, reformed, baseline *params.Parameters) string {
	md := reformed.Metadata()
	baseMD := baseline.Metadata()

	var out strings.Builder
	for _, year := range Years(reform) {
		fmt.Fprintf(&out, "%d:\n", year)
		names := make([]string, 0, len(reform[year]))
		for name := range reform[year] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			canonical := params.Canonical(name)
			if strings.HasSuffix(canonical, "_cpi") {
				fmt.Fprintf(&out, " %s : %v\n", canonical, reform[year][name])
				continue
			}
			m, ok := md[canonical]
			if !ok {
				continue // structural errors already reported upstream
			}
			idx := year - reformed.StartYear()
			value := valueDisplay(reformed, canonical, idx, m)
			fmt.Fprintf(&out, " %s : %s\n", canonical, value)
			fmt.Fprintf(&out, "  name: %s\n", m.LongName)
			fmt.Fprintf(&out, "  desc: %s\n", m.Description)
			if bm, ok := baseMD[canonical]; ok {
				fmt.Fprintf(&out, "  baseline_value: %s\n", valueDisplay(baseline, canonical, idx, bm))
			}
		}
	}
	return out.String()
}

func valueDisplay(p *params.Parameters, name string, idx int, m params.Meta) string {
	rows, err := p.Horizon(name)
	if err != nil || idx < 0 || idx >= len(rows) {
		return "?"
	}
	return rows[idx].Display(params.ValueType(m.ValueType))
}
