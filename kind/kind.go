// Package kind holds the benchmark kinds a campaign can run. The scheduler
// never branches on the kind: everything it needs is behind Kind.
package kind

import (
	"fmt"
	"sort"
	"time"

	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/model"
)

// Kind is the per-benchmark behaviour the scheduler relies on.
type Kind interface {
	Name() string
	// RepetitionCost is the estimated wall-clock cost of one repetition.
	RepetitionCost(r model.Record, s estimate.Settings) time.Duration
	// Extension of the raw measurement artifact written per repetition.
	Extension() string
	// Exclude reports configurations that cannot be run, e.g. passthrough
	// interfaces shared by several VMs.
	Exclude(r model.Record) bool
}

// Validator is implemented by kinds that restrict the matrix beyond its
// structure.
type Validator interface {
	Validate(m model.Matrix) error
}

// Sample is one parsed measurement value.
type Sample struct {
	Label string
	Value float64
}

// ResultParser is implemented by kinds whose raw artifacts can be turned
// into samples.
type ResultParser interface {
	// Unit names the sample values, e.g. "pps".
	Unit() string
	ParseResult(r model.Record, data []byte) ([]Sample, error)
}

var kinds = map[string]Kind{}

func register(k Kind) {
	kinds[k.Name()] = k
}

func init() {
	register(Throughput{})
	register(Firewall{})
	register(Latency{})
	register(Reconfiguration{})
	register(Misc{})
}

// Lookup returns the kind with the given name.
func Lookup(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		return nil, model.Configf("kind", "unknown benchmark kind %q (known: %v)", name, Names())
	}
	return k, nil
}

// Names returns the registered kind names, sorted.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func requireValues(m model.Matrix, dim string, allowed ...string) error {
	d, ok := m.Dimension(dim)
	if !ok {
		return model.Configf(dim, "dimension is required")
	}
	for _, v := range d.Values {
		found := false
		for _, a := range allowed {
			if v.String() == a {
				found = true
				break
			}
		}
		if !found {
			return model.Configf(dim, "unknown value %q (allowed: %v)", v, allowed)
		}
	}
	return nil
}

func errorf(r model.Record, format string, args ...any) error {
	return fmt.Errorf("%s: %s", r.Identity(), fmt.Sprintf(format, args...))
}
