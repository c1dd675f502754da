package kind

import (
	"time"

	"github.com/perfgo/benchcamp/model"
)

// Preset is a complete built-in test plan for one kind.
type Preset struct {
	Kind   string
	Matrix model.Matrix
	// Key lists the dimensions whose change requires a reboot.
	Key []string
	// Iterate is the grouping order; it starts with the key dimensions,
	// possibly permuted.
	Iterate  []string
	Duration time.Duration
}

func dim(name string, values ...any) model.Dimension {
	return model.Dimension{Name: name, Values: model.Values(values...)}
}

// PresetFor returns the built-in plan of the named kind. Brief plans shrink the
// matrix to one configuration per axis and shorten the measurement.
func PresetFor(name string, brief bool) (Preset, error) {
	fn, ok := presets[name]
	if !ok {
		return Preset{}, model.Configf("kind", "no preset for benchmark kind %q", name)
	}
	return fn(brief), nil
}

var presets = map[string]func(brief bool) Preset{
	"throughput":      throughputPreset,
	"firewall":        firewallPreset,
	"latency":         latencyPreset,
	"reconfiguration": reconfigurationPreset,
	"misc":            miscPreset,
}

func throughputPreset(brief bool) Preset {
	p := Preset{
		Kind:     "throughput",
		Key:      []string{"interface", "num_vms", "direction"},
		Iterate:  []string{"num_vms", "interface", "direction"},
		Duration: 61 * time.Second,
		Matrix: model.NewMatrix(
			dim("repetitions", 3),
			dim("direction", "forward"),
			dim("interface", "vfio", "bridge", "bridge-vhost", "bridge-e1000", "vmux-emu", "vmux-dpdk-e810", "vmux-med"),
			dim("num_vms", 1, 2, 4, 8, 16, 32, 64),
			dim("size", 64),
			dim("vnf", "empty"),
		),
	}
	if brief {
		p.Duration = 10 * time.Second
		p.Matrix = model.NewMatrix(
			dim("repetitions", 1),
			dim("direction", "tx"),
			dim("interface", "bridge"),
			dim("num_vms", 1),
			dim("size", 64),
			dim("vnf", "empty"),
		)
	}
	return p
}

func firewallPreset(brief bool) Preset {
	p := Preset{
		Kind:     "firewall",
		Key:      []string{"interface", "num_vms", "direction", "system", "vnf", "size", "fw_size"},
		Iterate:  []string{"num_vms", "interface", "direction", "system", "vnf", "size", "fw_size"},
		Duration: 181 * time.Second,
		Matrix: model.NewMatrix(
			dim("repetitions", 3),
			dim("direction", "rx"),
			dim("interface", "vpp"),
			dim("num_vms", 1),
			dim("size", 64),
			dim("vnf", "firewall"),
			dim("system", "linux", "uk", "ukebpf", "ukebpfjit"),
			dim("fw_size", 2, 10, 100, 1000, 10000),
		),
	}
	if brief {
		p.Matrix = model.NewMatrix(
			dim("repetitions", 1),
			dim("direction", "rx"),
			dim("interface", "vpp"),
			dim("num_vms", 1),
			dim("size", 64),
			dim("vnf", "firewall"),
			dim("system", "uk"),
			dim("fw_size", 10000),
		)
	}
	return p
}

func latencyPreset(brief bool) Preset {
	p := Preset{
		Kind:     "latency",
		Key:      []string{"interface", "num_vms", "direction", "system", "vnf", "size"},
		Iterate:  []string{"num_vms", "interface", "direction", "system", "vnf", "size"},
		Duration: 71 * time.Second,
		Matrix: model.NewMatrix(
			dim("repetitions", 3),
			dim("direction", "rx"),
			dim("interface", "vpp"),
			dim("num_vms", 1),
			dim("size", 64),
			dim("vnf", "mirror"),
			dim("system", "linux", "uk", "ukebpfjit"),
			dim("rate", 100),
		),
	}
	if brief {
		p.Duration = 15 * time.Second
		p.Matrix = model.NewMatrix(
			dim("repetitions", 1),
			dim("direction", "rx"),
			dim("interface", "vpp"),
			dim("num_vms", 1),
			dim("size", 64),
			dim("vnf", "nat"),
			dim("system", "uk"),
			dim("rate", 100),
		)
	}
	return p
}

func reconfigurationPreset(brief bool) Preset {
	p := Preset{
		Kind:     "reconfiguration",
		Key:      []string{"num_vms", "system", "vnf"},
		Iterate:  []string{"num_vms", "system", "vnf"},
		Duration: 71 * time.Second,
		Matrix: model.NewMatrix(
			dim("repetitions", 3),
			dim("num_vms", 1),
			dim("vnf", "empty", "filter", "nat", "ids", "mirror"),
			dim("system", "linux", "uk", "ukebpfjit"),
		),
	}
	if brief {
		p.Duration = 15 * time.Second
		p.Matrix = model.NewMatrix(
			dim("repetitions", 1),
			dim("num_vms", 1),
			dim("vnf", "empty"),
			dim("system", "ukebpfjit"),
		)
	}
	return p
}

func miscPreset(bool) Preset {
	return Preset{
		Kind:    "misc",
		Key:     nil,
		Iterate: []string{"name"},
		Matrix: model.NewMatrix(
			dim("name", "imagesize", "safetytime"),
			dim("repetitions", 1),
			dim("num_vms", 1),
		),
	}
}

// PresetNames lists the kinds with a built-in plan in the order the full
// suite runs them.
func PresetNames() []string {
	return []string{"throughput", "firewall", "latency", "reconfiguration", "misc"}
}
