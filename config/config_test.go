package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perfgo/benchcamp/model"
)

const example = `
name: smoke
kind: throughput
matrix:
  repetitions: 2
  system: [A, B]
  size: [64, 1500]
  label: ["64"]
exclude:
  - system: B
    size: [1500]
key: [system]
duration: 30s
reconfiguration_cost: 1m
ledger: sqlite
targets:
  host:
    local: /tmp
  loadgen:
    ssh: user@loadgen
    identity_file: ~/.ssh/id_bench
shell:
  reconfigure:
    - targets: [host]
      command: "reboot-into {{.system}}"
  run:
    - targets: [host, loadgen]
      command: "run --size {{.size}}"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(example))
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve())

	require.Equal(t, []string{"repetitions", "system", "size", "label"}, cfg.Matrix.Names())
	size, ok := cfg.Matrix.Dimension("size")
	require.True(t, ok)
	require.Equal(t, model.Values(64, 1500), size.Values)
	label, _ := cfg.Matrix.Dimension("label")
	require.Equal(t, model.Values("64"), label.Values, "quoted numbers stay tokens")

	require.Equal(t, []string{"system"}, cfg.Iterate, "iterate defaults to the key")
	require.Equal(t, 30*time.Second, cfg.Duration)
	require.Equal(t, time.Minute, cfg.ReconfigurationCost)
	require.Equal(t, DefaultOutDir, cfg.OutDir)
	require.Equal(t, filepath.Join(DefaultOutDir, "smoke"), cfg.CampaignDir())
	require.Equal(t, "user@loadgen", cfg.Targets["loadgen"].SSH)
	require.Equal(t, []string{"host", "loadgen"}, cfg.Shell.Targets())

	rules := cfg.Rules()
	require.Len(t, rules, 1)
	exclude := rules.Func()
	rejected := model.NewRecord([]model.Field{
		{Name: "system", Value: model.String("B")},
		{Name: "size", Value: model.Int(1500)},
	}, 2)
	require.True(t, exclude(rejected))
}

func TestResolve_Preset(t *testing.T) {
	cfg := ForKind("latency", true)
	require.NoError(t, cfg.Resolve())
	require.Equal(t, 15*time.Second, cfg.Duration)
	require.Equal(t, "file", cfg.Ledger)
	require.Equal(t, "num_vms", cfg.Iterate[0])
	reps, err := cfg.Matrix.Repetitions()
	require.NoError(t, err)
	require.Equal(t, 1, reps)

	// explicit fields win over the preset
	cfg, err = Parse([]byte("name: t\nkind: throughput\npreset: true\nduration: 5s\nkey: [interface]\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve())
	require.Equal(t, 5*time.Second, cfg.Duration)
	require.Equal(t, []string{"interface"}, cfg.Key)
	require.Equal(t, []string{"num_vms", "interface", "direction"}, cfg.Iterate)
}

func TestResolve_Errors(t *testing.T) {
	base := "name: t\nkind: throughput\nmatrix:\n  repetitions: 1\n  size: [64]\n"
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"unknown kind", "name: t\nkind: bogus\nmatrix:\n  repetitions: 1\n", "kind"},
		{"unknown ledger", base + "ledger: redis\n", "ledger"},
		{"local and ssh", base + "targets:\n  host:\n    local: /tmp\n    ssh: h\n", "targets[host].local"},
		{"no target kind", base + "targets:\n  host:\n    options: [x]\n", "targets[host].local"},
		{"key not in matrix", base + "key: [system]\n", "key"},
		{"iterate not in matrix", base + "key: [size]\niterate: [size, system]\n", "iterate"},
		{"exclude not in matrix", base + "exclude:\n  - system: [B]\n", "exclude"},
		{"exclude value not declared", base + "exclude:\n  - size: [128]\n", "exclude"},
		{"exclude quoted number", base + "exclude:\n  - size: [\"64\"]\n", "exclude"},
		{"repeated matrix value", "name: t\nkind: throughput\nmatrix:\n  repetitions: 1\n  size: [64, \"64\"]\n", "size"},
		{"command without targets", base + "shell:\n  run:\n    - command: x\n", "shell.run[0].targets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data))
			require.NoError(t, err)
			err = cfg.Resolve()
			require.Error(t, err)
			require.True(t, model.IsConfigError(err), "%v", err)
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParse_IntegerForms(t *testing.T) {
	cfg, err := Parse([]byte("name: t\nkind: misc\nmatrix:\n  size: [0x40, 1_500, -3, \"0x40\", v1]\n"))
	require.NoError(t, err)
	size, ok := cfg.Matrix.Dimension("size")
	require.True(t, ok)
	require.Equal(t, model.Values(64, 1500, -3, "0x40", "v1"), size.Values)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("name: t\nkind: misc\nbogus: 1\n"))
	require.Error(t, err)
	require.True(t, model.IsConfigError(err))
}

func TestParse_BadMatrix(t *testing.T) {
	_, err := Parse([]byte("name: t\nkind: misc\nmatrix: [a, b]\n"))
	require.ErrorContains(t, err, "matrix must be a mapping")

	_, err = Parse([]byte("name: t\nkind: misc\nmatrix:\n  size: {a: 1}\n"))
	require.ErrorContains(t, err, "dimension size")
}

func TestRenderer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vnf.tmpl"), []byte("size={{.size}}"), 0o644))
	path := filepath.Join(dir, "campaign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: t\nkind: throughput\nmatrix:\n  repetitions: 1\n  size: [64]\nrender:\n  template_file: vnf.tmpl\n  files: [rules.txt]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve())

	r, err := cfg.Renderer()
	require.NoError(t, err)
	files, text, err := r.RenderConfig(model.NewRecord([]model.Field{{Name: "size", Value: model.Int(64)}}, 1))
	require.NoError(t, err)
	require.Equal(t, "size=64", text)
	require.Equal(t, []string{"rules.txt"}, files)

	cfg.Render = nil
	r, err = cfg.Renderer()
	require.NoError(t, err)
	require.Nil(t, r)
}
