// Package matrix expands a declared test matrix into the ordered list of
// test records, applying exclusion rules once at expansion time.
package matrix

import (
	"github.com/perfgo/benchcamp/model"
)

// ExcludeFunc reports whether a record must be dropped from the campaign.
// It must be a pure function of the record's fields.
type ExcludeFunc func(model.Record) bool

// AnyOf combines exclusion predicates; a record is excluded when any of
// them rejects it. Nil predicates are skipped.
func AnyOf(fns ...ExcludeFunc) ExcludeFunc {
	return func(r model.Record) bool {
		for _, fn := range fns {
			if fn != nil && fn(r) {
				return true
			}
		}
		return false
	}
}

// Expand returns every combination of the matrix's dimension values as a
// record, in declaration order with the last dimension varying fastest.
// The repetitions dimension becomes the record's repeat count instead of a
// field. An empty value set yields no records; so does a predicate that
// rejects everything. Neither is an error.
func Expand(m model.Matrix, exclude ExcludeFunc) ([]model.Record, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	reps, err := m.Repetitions()
	if err != nil {
		return nil, err
	}

	var dims []model.Dimension
	for _, d := range m.Dimensions() {
		if d.Name == model.RepetitionsDimension {
			continue
		}
		if len(d.Values) == 0 {
			return []model.Record{}, nil
		}
		dims = append(dims, d)
	}

	records := []model.Record{}
	idx := make([]int, len(dims))
	fields := make([]model.Field, len(dims))
	for {
		for i, d := range dims {
			fields[i] = model.Field{Name: d.Name, Value: d.Values[idx[i]]}
		}
		r := model.NewRecord(fields, reps)
		if exclude == nil || !exclude(r) {
			records = append(records, r)
		}

		// odometer increment, last dimension fastest
		i := len(dims) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(dims[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return records, nil
}

// Validate checks that every name in dims is declared by the matrix. It is
// used for reconfiguration keys and iteration orders before anything runs.
func Validate(m model.Matrix, what string, dims []string) error {
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if !m.Has(d) {
			return model.Configf(what, "dimension %q is not declared in the test matrix", d)
		}
		if seen[d] {
			return model.Configf(what, "dimension %q listed twice", d)
		}
		seen[d] = true
	}
	return nil
}
