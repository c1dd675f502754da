package model

import (
	"fmt"
	"strings"
)

// RepetitionsDimension is the dimension that carries the repeat count of
// every record. It is not part of a record's identity.
const RepetitionsDimension = "repetitions"

// Dimension is a named axis of the test space.
type Dimension struct {
	Name   string
	Values []Value
}

// Matrix is the declared space of dimensions and their allowed values. The
// dimension order is significant: it defines the enumeration order of the
// expanded records.
type Matrix struct {
	dims []Dimension
}

// NewMatrix builds a matrix from dimensions in declaration order.
func NewMatrix(dims ...Dimension) Matrix {
	cp := make([]Dimension, len(dims))
	for i, d := range dims {
		cp[i] = Dimension{Name: d.Name, Values: append([]Value(nil), d.Values...)}
	}
	return Matrix{dims: cp}
}

// Dimensions returns the dimensions in declaration order.
func (m Matrix) Dimensions() []Dimension {
	return m.dims
}

// Names returns the dimension names in declaration order.
func (m Matrix) Names() []string {
	names := make([]string, len(m.dims))
	for i, d := range m.dims {
		names[i] = d.Name
	}
	return names
}

// Dimension returns the dimension called name.
func (m Matrix) Dimension(name string) (Dimension, bool) {
	for _, d := range m.dims {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Has reports whether the matrix declares a dimension called name.
func (m Matrix) Has(name string) bool {
	_, ok := m.Dimension(name)
	return ok
}

// Size is the number of combinations in the Cartesian product.
func (m Matrix) Size() int {
	if len(m.dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range m.dims {
		n *= len(d.Values)
	}
	return n
}

// Repetitions returns the declared repeat count.
func (m Matrix) Repetitions() (int, error) {
	d, ok := m.Dimension(RepetitionsDimension)
	if !ok {
		return 0, Configf(RepetitionsDimension, "dimension is missing from the test matrix")
	}
	if len(d.Values) != 1 {
		return 0, Configf(RepetitionsDimension, "expected exactly one repeat count, got %d", len(d.Values))
	}
	n, ok := d.Values[0].Int64()
	if !ok {
		return 0, Configf(RepetitionsDimension, "repeat count %q is not an integer", d.Values[0])
	}
	if n < 1 {
		return 0, Configf(RepetitionsDimension, "repeat count must be at least 1, got %d", n)
	}
	return int(n), nil
}

// Validate checks dimension names and value tokens. Values of a dimension
// must be distinct once formatted, since they name records and artifacts.
func (m Matrix) Validate() error {
	seen := make(map[string]bool, len(m.dims))
	for _, d := range m.dims {
		if d.Name == "" {
			return Configf("matrix", "dimension with empty name")
		}
		if seen[d.Name] {
			return Configf(d.Name, "dimension declared twice")
		}
		seen[d.Name] = true
		if strings.ContainsAny(d.Name, "/. \t") {
			return Configf(d.Name, "dimension name must not contain '/', '.' or whitespace")
		}
		values := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			if err := validToken(v); err != nil {
				return Configf(d.Name, "%v", err)
			}
			if values[v.String()] {
				return Configf(d.Name, "value %s listed twice", v)
			}
			values[v.String()] = true
		}
	}
	_, err := m.Repetitions()
	return err
}

// validToken rejects values that would break artifact file names.
func validToken(v Value) error {
	if v.IsInt() {
		return nil
	}
	s := v.String()
	if s == "" {
		return fmt.Errorf("empty value")
	}
	if strings.ContainsAny(s, "/\\ \t\n") {
		return fmt.Errorf("value %q must not contain path separators or whitespace", s)
	}
	return nil
}
