package kind

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/model"
)

const startupTracePrefix = "Startup trace (nsec):"

// Reconfiguration measures how long a VNF takes to be reloaded. The cost of a
// repetition is dominated by the reconfiguration itself, which the estimate
// already charges per group.
type Reconfiguration struct{}

func (Reconfiguration) Name() string      { return "reconfiguration" }
func (Reconfiguration) Extension() string { return "trace.log" }

func (Reconfiguration) RepetitionCost(model.Record, estimate.Settings) time.Duration {
	return 0
}

func (Reconfiguration) Exclude(model.Record) bool { return false }

func (Reconfiguration) Unit() string { return "nsec" }

// ParseResult reads "Startup trace (nsec): <label>: <value>" lines, and the
// "real" line of time(1) output as the "total" label.
func (Reconfiguration) ParseResult(r model.Record, data []byte) ([]Sample, error) {
	var samples []Sample
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, startupTracePrefix):
			parts := strings.Split(line, ":")
			if len(parts) < 3 {
				return nil, errorf(r, "bad startup trace line %q", line)
			}
			v, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
			if err != nil {
				return nil, errorf(r, "bad startup trace value in %q", line)
			}
			samples = append(samples, Sample{Label: strings.TrimSpace(parts[1]), Value: float64(v)})
		case strings.HasPrefix(line, "real"):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, errorf(r, "bad time line %q", line)
			}
			d, err := parseMinSec(fields[1])
			if err != nil {
				return nil, errorf(r, "bad time value in %q", line)
			}
			samples = append(samples, Sample{Label: "total", Value: float64(d.Nanoseconds())})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errorf(r, "failed to read trace: %v", err)
	}
	if len(samples) == 0 {
		return nil, errorf(r, "no startup trace found")
	}
	return samples, nil
}

// parseMinSec parses time(1) durations such as "0m1.234s".
func parseMinSec(s string) (time.Duration, error) {
	mins, secs, ok := strings.Cut(s, "m")
	if !ok {
		return 0, strconv.ErrSyntax
	}
	m, err := strconv.ParseFloat(mins, 64)
	if err != nil {
		return 0, err
	}
	sv, err := strconv.ParseFloat(strings.TrimSuffix(secs, "s"), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration((m*60 + sv) * float64(time.Second)), nil
}
