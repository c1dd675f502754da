package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/montanaflynn/stats"
)

// Stat describes the samples of one configuration and label across all of
// its repetitions.
type Stat struct {
	Identity string
	Label    string
	N        int
	Mean     float64
	StdDev   float64
	Min      float64
	Median   float64
	Max      float64
}

// Summary aggregates a report per configuration.
type Summary struct {
	Kind  string
	Unit  string
	Stats []Stat
	// Failed maps a configuration identity to its number of failed
	// repetitions.
	Failed map[string]int
	// order of identities as first seen
	order []string
}

// Summarize computes statistics per configuration and sample label, in
// report order.
func Summarize(r *Report) (*Summary, error) {
	s := &Summary{Kind: r.Kind, Unit: r.Unit, Failed: map[string]int{}}

	type key struct{ id, label string }
	var keys []key
	samples := map[key][]float64{}
	seen := map[string]bool{}

	for _, row := range r.Rows {
		id := row.Record.Identity()
		if !seen[id] {
			seen[id] = true
			s.order = append(s.order, id)
		}
		if row.Err != nil {
			s.Failed[id]++
			continue
		}
		for _, sm := range row.Samples {
			k := key{id, sm.Label}
			if _, ok := samples[k]; !ok {
				keys = append(keys, k)
			}
			samples[k] = append(samples[k], sm.Value)
		}
	}

	for _, k := range keys {
		st, err := describe(samples[k])
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s/%s: %w", k.id, k.label, err)
		}
		st.Identity, st.Label = k.id, k.label
		s.Stats = append(s.Stats, st)
	}
	return s, nil
}

func describe(data stats.Float64Data) (Stat, error) {
	st := Stat{N: len(data)}
	var err error
	if st.Mean, err = stats.Mean(data); err != nil {
		return st, err
	}
	if len(data) > 1 {
		if st.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return st, err
		}
	}
	if st.Min, err = stats.Min(data); err != nil {
		return st, err
	}
	if st.Median, err = stats.Median(data); err != nil {
		return st, err
	}
	if st.Max, err = stats.Max(data); err != nil {
		return st, err
	}
	return st, nil
}

// Write prints one line per configuration and label, followed by the
// configurations with failed repetitions.
func (s *Summary) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-50s %-12s %6s %14s %14s %14s %14s %14s\n",
		"configuration", "label", "n", "mean", "std", "min", "50%", "max"); err != nil {
		return err
	}
	for _, st := range s.Stats {
		if _, err := fmt.Fprintf(w, "%-50s %-12s %6d %14.2f %14.2f %14.2f %14.2f %14.2f\n",
			st.Identity, st.Label, st.N, st.Mean, st.StdDev, st.Min, st.Median, st.Max); err != nil {
			return err
		}
	}
	for _, id := range s.order {
		if n := s.Failed[id]; n > 0 {
			if _, err := fmt.Fprintf(w, "FAILED %s: %d repetition(s)\n", id, n); err != nil {
				return err
			}
		}
	}
	if s.Unit != "" {
		_, err := fmt.Fprintf(w, "unit: %s\n", s.Unit)
		return err
	}
	return nil
}

// SummaryPath is "<dir>/<kind>_summary.log".
func SummaryPath(dir, kind string) string {
	return filepath.Join(dir, kind+"_summary.log")
}

// WriteFile writes the summary to SummaryPath.
func (s *Summary) WriteFile(dir string) (string, error) {
	path := SummaryPath(dir, s.Kind)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary: %w", err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, f.Close()
}
