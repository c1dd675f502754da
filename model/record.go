package model

import (
	"fmt"
	"strings"
)

// Field is one named parameter of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one concrete benchmark configuration plus its repeat count.
// It is immutable: all accessors return copies.
type Record struct {
	fields      []Field
	repetitions int
}

// NewRecord builds a record. Fields keep the given order, which should be
// the matrix declaration order so that identities are stable.
func NewRecord(fields []Field, repetitions int) Record {
	return Record{
		fields:      append([]Field(nil), fields...),
		repetitions: repetitions,
	}
}

// Repetitions is the number of times the configuration is measured.
func (r Record) Repetitions() int {
	return r.repetitions
}

// Fields returns a copy of the non-repetition fields.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Get returns the value of the named field. The repetitions dimension is
// reported as an integer field.
func (r Record) Get(name string) (Value, bool) {
	if name == RepetitionsDimension {
		return Int(int64(r.repetitions)), true
	}
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Int returns the named field as an integer, or 0 when it is absent or a token.
func (r Record) Int(name string) int64 {
	v, _ := r.Get(name)
	n, _ := v.Int64()
	return n
}

// Str returns the named field formatted as a string, or "" when absent.
func (r Record) Str(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return v.String()
}

// Key returns the values of dims, in order.
func (r Record) Key(dims []string) ([]Value, error) {
	key := make([]Value, len(dims))
	for i, d := range dims {
		v, ok := r.Get(d)
		if !ok {
			return nil, Configf(d, "dimension is not present in record %s", r.Identity())
		}
		key[i] = v
	}
	return key, nil
}

// Identity is the stable string encoding of all non-repetition fields:
// name_value tokens joined by underscores, in field order.
func (r Record) Identity() string {
	parts := make([]string, 0, 2*len(r.fields))
	for _, f := range r.fields {
		parts = append(parts, f.Name, f.Value.String())
	}
	return strings.Join(parts, "_")
}

// SameConfiguration reports whether both records describe the same
// configuration, ignoring the repeat count.
func (r Record) SameConfiguration(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

// Map returns the fields as a map keyed by name, including repetitions.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.fields)+1)
	for _, f := range r.fields {
		if n, ok := f.Value.Int64(); ok {
			m[f.Name] = n
		} else {
			m[f.Name] = f.Value.String()
		}
	}
	m[RepetitionsDimension] = r.repetitions
	return m
}

func (r Record) String() string {
	parts := make([]string, 0, len(r.fields)+1)
	for _, f := range r.fields {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, f.Value))
	}
	parts = append(parts, fmt.Sprintf("%s=%d", RepetitionsDimension, r.repetitions))
	return "{" + strings.Join(parts, " ") + "}"
}

// Run is a single repetition of a record.
type Run struct {
	Record     Record
	Repetition int
}

// Get makes Run usable wherever a record's fields are looked up.
func (r Run) Get(name string) (Value, bool) {
	return r.Record.Get(name)
}

// Runs expands records into one Run per repetition, keeping record order.
func Runs(records []Record) []Run {
	var runs []Run
	for _, r := range records {
		for rep := 0; rep < r.repetitions; rep++ {
			runs = append(runs, Run{Record: r, Repetition: rep})
		}
	}
	return runs
}

// MatrixString summarizes the distinct values of every dimension among
// records in order of first appearance, e.g. "interface=[vfio bridge] size=[64]".
func MatrixString(records []Record) string {
	if len(records) == 0 {
		return "(empty)"
	}
	var order []string
	distinct := map[string][]Value{}
	seen := map[string]map[Value]bool{}
	for _, r := range records {
		for _, f := range r.fields {
			if _, ok := seen[f.Name]; !ok {
				seen[f.Name] = map[Value]bool{}
				order = append(order, f.Name)
			}
			if !seen[f.Name][f.Value] {
				seen[f.Name][f.Value] = true
				distinct[f.Name] = append(distinct[f.Name], f.Value)
			}
		}
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		vals := distinct[name]
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = v.String()
		}
		parts = append(parts, fmt.Sprintf("%s=[%s]", name, strings.Join(strs, " ")))
	}
	return strings.Join(parts, " ")
}
