package kind

import (
	"time"

	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/model"
)

var miscDurations = map[string]time.Duration{
	"imagesize":  5 * time.Minute,
	"safetytime": 3 * time.Minute,
}

// Misc groups one-off measurements identified by their name dimension.
type Misc struct{}

func (Misc) Name() string      { return "misc" }
func (Misc) Extension() string { return "log" }

func (Misc) RepetitionCost(r model.Record, _ estimate.Settings) time.Duration {
	return miscDurations[r.Str("name")]
}

func (Misc) Exclude(model.Record) bool { return false }

// Validate rejects names without a known measurement.
func (Misc) Validate(m model.Matrix) error {
	return requireValues(m, "name", "imagesize", "safetytime")
}
