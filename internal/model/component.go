package model

// Component is a national-accounts transaction code. Codes are open-ended in
// ingest; the set below covers the components the published tables carry.
type Component string

const (
	ComponentCompensation     Component = "D1"   // compensation of employees
	ComponentOperatingSurplus Component = "B2"   // operating surplus and mixed income
	ComponentPropertyIncome   Component = "D4"   // property income, received
	ComponentCurrentTaxes     Component = "D5"   // current taxes on income and wealth
	ComponentSocialContribs   Component = "D61"  // net social contributions
	ComponentSocialBenefits   Component = "D62"  // social benefits other than in kind
	ComponentOtherBenefits    Component = "D623" // social assistance benefits in cash
	ComponentOtherTransfers   Component = "D7"   // other current transfers
	ComponentDisposableIncome Component = "B6"   // gross disposable household income
)

// Components returns the distinct components present in pts, in first-seen
// order.
func Components(pts []SeriesPoint) []Component {
	seen := make(map[Component]bool)
	var out []Component
	for i := range pts {
		if c := pts[i].Component; !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
