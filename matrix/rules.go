package matrix

import (
	"strconv"

	"github.com/perfgo/benchcamp/model"
)

// Rule rejects records whose fields match one of the listed values for
// every dimension named in the rule. A rule {system: [B], size: [1500]}
// rejects exactly the records with system=B and size=1500.
type Rule map[string][]model.Value

// Rules is a list of rules; a record is rejected if any rule matches.
type Rules []Rule

// Check verifies that every rule only names dimensions of the matrix and
// only lists values those dimensions declare.
func (rs Rules) Check(m model.Matrix) error {
	for _, rule := range rs {
		if len(rule) == 0 {
			return model.Configf("exclude", "empty rule would reject every record")
		}
		for dim := range rule {
			if dim == model.RepetitionsDimension {
				return model.Configf("exclude", "rules cannot match on %q", dim)
			}
			d, ok := m.Dimension(dim)
			if !ok {
				return model.Configf("exclude", "dimension %q is not declared in the test matrix", dim)
			}
			if len(rule[dim]) == 0 {
				return model.Configf("exclude", "no values listed for dimension %q", dim)
			}
			for _, v := range rule[dim] {
				if !contains(d.Values, v) {
					return model.Configf("exclude", "value %s is not declared for dimension %q", quoted(v), dim)
				}
			}
		}
	}
	return nil
}

// Func returns the predicate form of the rules.
func (rs Rules) Func() ExcludeFunc {
	if len(rs) == 0 {
		return nil
	}
	return func(r model.Record) bool {
		for _, rule := range rs {
			if rule.matches(r) {
				return true
			}
		}
		return false
	}
}

func (rule Rule) matches(r model.Record) bool {
	for dim, values := range rule {
		v, ok := r.Get(dim)
		if !ok {
			return false
		}
		if !contains(values, v) {
			return false
		}
	}
	return true
}

// quoted shows tokens in quotes so that "64" and 64 read differently.
func quoted(v model.Value) string {
	if v.IsInt() {
		return v.String()
	}
	return strconv.Quote(v.String())
}

func contains(values []model.Value, v model.Value) bool {
	for _, want := range values {
		if v == want {
			return true
		}
	}
	return false
}
