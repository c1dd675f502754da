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

// WarmupSamples is the number of one-second rate samples dropped from the
// start of every packet-rate measurement.
const WarmupSamples = 4

const rxRatePrefix = "Rx rate: "

// passthrough interfaces hand the NIC to a single VM.
var passthrough = map[string]bool{
	"vfio":    true,
	"vmux-pt": true,
}

// Throughput measures packet rates across interface types and VM counts.
type Throughput struct{}

func (Throughput) Name() string      { return "throughput" }
func (Throughput) Extension() string { return "monitor.log" }

func (Throughput) RepetitionCost(_ model.Record, s estimate.Settings) time.Duration {
	return s.Duration + 2*time.Second
}

// RecordOverhead covers starting and stopping the monitors of a record.
func (Throughput) RecordOverhead(model.Record, estimate.Settings) time.Duration {
	return 35 * time.Second
}

func (Throughput) Exclude(r model.Record) bool {
	return passthrough[r.Str("interface")] && r.Int("num_vms") > 1
}

func (Throughput) Unit() string { return "pps" }

func (Throughput) ParseResult(r model.Record, data []byte) ([]Sample, error) {
	return parseRates(r, data)
}

// Firewall measures packet rates through firewalls of growing rule counts.
type Firewall struct {
	Throughput
}

func (Firewall) Name() string { return "firewall" }

// Latency measures packet rates at a fixed offered load.
type Latency struct{}

func (Latency) Name() string      { return "latency" }
func (Latency) Extension() string { return "pktgen.log" }

// RepetitionCost includes pktgen startup; Linux guests take longer to come
// up.
func (Latency) RepetitionCost(r model.Record, s estimate.Settings) time.Duration {
	cost := s.Duration + 20*time.Second
	if r.Str("system") == "linux" {
		cost += 20 * time.Second
	}
	return cost
}

func (Latency) Exclude(model.Record) bool { return false }

func (Latency) Unit() string { return "pps" }

func (Latency) ParseResult(r model.Record, data []byte) ([]Sample, error) {
	return parseRates(r, data)
}

// parseRates reads per-second packet rates. Receive-side measurements come
// from "Rx rate: N" lines, transmit-side ones from tab separated monitor
// output whose first column is packets per second.
func parseRates(r model.Record, data []byte) ([]Sample, error) {
	direction := r.Str("direction")
	if direction == "" {
		direction = "rx"
	}

	var values []float64
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		var field string
		switch direction {
		case "rx", "forward":
			_, rest, ok := strings.Cut(line, rxRatePrefix)
			if !ok {
				continue
			}
			if fs := strings.Fields(rest); len(fs) > 0 {
				field = fs[0]
			}
		case "tx":
			if strings.TrimSpace(line) == "" {
				continue
			}
			field = strings.TrimSpace(strings.Split(line, "\t")[0])
		default:
			return nil, errorf(r, "unknown direction %q", direction)
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errorf(r, "bad rate sample %q", line)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errorf(r, "failed to read samples: %v", err)
	}

	if len(values) <= WarmupSamples {
		return nil, errorf(r, "only %d rate samples, need more than %d", len(values), WarmupSamples)
	}
	values = values[WarmupSamples:]

	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Label: "rate", Value: v}
	}
	return samples, nil
}
