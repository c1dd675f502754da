// Package estimate projects the wall-clock cost of a campaign before anything
// runs.
package estimate

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/perfgo/benchcamp/model"
)

// Settings are the campaign-wide inputs to a cost estimate.
type Settings struct {
	// Duration is the measurement time of one repetition.
	Duration time.Duration
	// ReconfigurationCost is charged once per contiguous run of records that
	// share the reconfiguration key.
	ReconfigurationCost time.Duration
}

// Coster reports the cost of one repetition of a record.
type Coster interface {
	RepetitionCost(r model.Record, s Settings) time.Duration
}

// Overheader is implemented by costers that also charge a fixed setup
// cost once per record, independent of its repetitions.
type Overheader interface {
	RecordOverhead(r model.Record, s Settings) time.Duration
}

// CosterFunc adapts a function to Coster.
type CosterFunc func(model.Record, Settings) time.Duration

func (f CosterFunc) RepetitionCost(r model.Record, s Settings) time.Duration {
	return f(r, s)
}

// Group is one reconfiguration group of a plan.
type Group struct {
	Key     []model.Value
	Records int
	Runs    int
	Cost    time.Duration
}

// Plan is the result of an estimate.
type Plan struct {
	Key              []string
	Groups           []Group
	Records          int
	Runs             int
	Reconfigurations int
	Measurement      time.Duration
	Reconfiguration  time.Duration
}

// Total is the projected campaign duration.
func (p Plan) Total() time.Duration {
	return p.Measurement + p.Reconfiguration
}

// Estimate sums repetitions x per-repetition cost (plus any per-record
// overhead) over records and adds one reconfiguration charge per contiguous
// run of records with equal key values, in the order given. Callers pass
// records in visiting order so that the charge count matches what the
// campaign will actually do.
func Estimate(records []model.Record, key []string, c Coster, s Settings) (Plan, error) {
	p := Plan{Key: append([]string(nil), key...)}
	for _, r := range records {
		k, err := r.Key(key)
		if err != nil {
			return Plan{}, err
		}
		if len(p.Groups) == 0 || !equal(p.Groups[len(p.Groups)-1].Key, k) {
			p.Groups = append(p.Groups, Group{Key: k, Cost: s.ReconfigurationCost})
			p.Reconfigurations++
			p.Reconfiguration += s.ReconfigurationCost
		}
		cost := time.Duration(r.Repetitions()) * c.RepetitionCost(r, s)
		if o, ok := c.(Overheader); ok {
			cost += o.RecordOverhead(r, s)
		}
		g := &p.Groups[len(p.Groups)-1]
		g.Records++
		g.Runs += r.Repetitions()
		g.Cost += cost

		p.Records++
		p.Runs += r.Repetitions()
		p.Measurement += cost
	}
	return p, nil
}

func equal(a, b []model.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Write prints one line per reconfiguration group followed by the totals.
func (p Plan) Write(w io.Writer) error {
	keyName := strings.Join(p.Key, ",")
	if keyName == "" {
		keyName = "(none)"
	}
	if _, err := fmt.Fprintf(w, "Reconfiguration key: %s\n", keyName); err != nil {
		return err
	}
	for i, g := range p.Groups {
		vals := make([]string, len(g.Key))
		for j, v := range g.Key {
			vals[j] = v.String()
		}
		if _, err := fmt.Fprintf(w, "  %3d  [%s]  records=%d runs=%d  %s\n",
			i+1, strings.Join(vals, " "), g.Records, g.Runs, FormatDuration(g.Cost)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Records: %d  Runs: %d  Reconfigurations: %d\nMeasurement: %s  Reconfiguration: %s  Total: %s\n",
		p.Records, p.Runs, p.Reconfigurations,
		FormatDuration(p.Measurement), FormatDuration(p.Reconfiguration), FormatDuration(p.Total()))
	return err
}

// FormatDuration renders d with second precision, e.g. "1h2m5s".
func FormatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
