// Package config loads campaign descriptions from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/perfgo/benchcamp/executor"
	"github.com/perfgo/benchcamp/kind"
	"github.com/perfgo/benchcamp/ledger"
	"github.com/perfgo/benchcamp/matrix"
	"github.com/perfgo/benchcamp/model"
)

// DefaultOutDir is the output root when none is configured.
const DefaultOutDir = "results"

// Config is a campaign description.
type Config struct {
	// Name of the campaign; also its directory below OutDir.
	Name string `yaml:"name" validate:"required,excludesall=/"`
	Kind string `yaml:"kind" validate:"required"`
	// Preset starts from the built-in plan of Kind; explicit fields win.
	Preset bool `yaml:"preset"`
	// Brief selects the reduced built-in plan.
	Brief bool `yaml:"brief"`

	Matrix  Matrix   `yaml:"matrix"`
	Exclude []Rule   `yaml:"exclude"`
	Key     []string `yaml:"key"`
	// Iterate is the grouping order; defaults to Key.
	Iterate []string `yaml:"iterate"`

	Duration            time.Duration `yaml:"duration" validate:"gte=0"`
	ReconfigurationCost time.Duration `yaml:"reconfiguration_cost" validate:"gte=0"`

	OutDir          string `yaml:"out_dir"`
	Ledger          string `yaml:"ledger" validate:"omitempty,oneof=file sqlite"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	// Fresh discards the ledger of an earlier launch.
	Fresh    bool `yaml:"fresh"`
	PlanOnly bool `yaml:"plan_only"`

	Targets map[string]Target    `yaml:"targets" validate:"dive"`
	Shell   executor.ShellConfig `yaml:"shell"`
	Render  *Render              `yaml:"render"`

	// directory of the loaded file, for relative paths
	dir string
}

// Target is a machine commands run on: a local working directory or an SSH
// host.
type Target struct {
	Local          string   `yaml:"local" validate:"required_without=SSH,excluded_with=SSH"`
	SSH            string   `yaml:"ssh"`
	IdentityFile   string   `yaml:"identity_file"`
	KnownHostsFile string   `yaml:"known_hosts_file"`
	ProxyCommand   string   `yaml:"proxy_command"`
	Options        []string `yaml:"options"`
}

// Render describes the per-record configuration shipped to the targets.
type Render struct {
	Template     string   `yaml:"template" validate:"required_without=TemplateFile"`
	TemplateFile string   `yaml:"template_file"`
	Files        []string `yaml:"files"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads a campaign description. The result still needs Resolve.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a campaign description. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil {
		return nil, &model.ConfigError{Reason: err.Error()}
	}
	return cfg, nil
}

// ForKind is the description of a built-in plan.
func ForKind(name string, brief bool) *Config {
	return &Config{Name: name, Kind: name, Preset: true, Brief: brief}
}

// Resolve fills defaults, the preset and validates the result. Every
// problem is reported as a *model.ConfigError.
func (c *Config) Resolve() error {
	if c.Preset {
		p, err := kind.PresetFor(c.Kind, c.Brief)
		if err != nil {
			return err
		}
		if len(c.Matrix.Dimensions()) == 0 {
			c.Matrix = Matrix{p.Matrix}
		}
		if c.Key == nil {
			c.Key = p.Key
		}
		if c.Iterate == nil {
			c.Iterate = p.Iterate
		}
		if c.Duration == 0 {
			c.Duration = p.Duration
		}
	}
	if c.Iterate == nil {
		c.Iterate = c.Key
	}
	if c.Ledger == "" {
		c.Ledger = ledger.BackendFile
	}
	if c.OutDir == "" {
		c.OutDir = DefaultOutDir
	}
	return c.Validate()
}

// Validate checks the structure and the matrix references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}

	k, err := kind.Lookup(c.Kind)
	if err != nil {
		return err
	}
	if err := c.Matrix.Validate(); err != nil {
		return err
	}
	if v, ok := k.(kind.Validator); ok {
		if err := v.Validate(c.Matrix.Matrix); err != nil {
			return err
		}
	}
	if err := c.Rules().Check(c.Matrix.Matrix); err != nil {
		return err
	}
	if err := matrix.Validate(c.Matrix.Matrix, "key", c.Key); err != nil {
		return err
	}
	return matrix.Validate(c.Matrix.Matrix, "iterate", c.Iterate)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ConfigError{Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return model.Configf(field, "failed %q validation (%s)", fe.Tag(), fe.Param())
	}
	return model.Configf(field, "failed %q validation", fe.Tag())
}

// Rules returns the exclusion rules.
func (c *Config) Rules() matrix.Rules {
	rules := make(matrix.Rules, 0, len(c.Exclude))
	for _, r := range c.Exclude {
		rule := matrix.Rule{}
		for dim, values := range r {
			rule[dim] = []model.Value(values)
		}
		rules = append(rules, rule)
	}
	return rules
}

// CampaignDir is "<out_dir>/<name>".
func (c *Config) CampaignDir() string {
	return filepath.Join(c.OutDir, c.Name)
}

// Renderer builds the configuration renderer, or returns nil when none is
// configured. A template file is resolved against the config file.
func (c *Config) Renderer() (executor.Renderer, error) {
	if c.Render == nil {
		return nil, nil
	}
	text := c.Render.Template
	if c.Render.TemplateFile != "" {
		path := c.Render.TemplateFile
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		text = string(data)
	}
	r, err := executor.NewTemplateRenderer("render", text, c.Render.Files...)
	if err != nil {
		return nil, model.Configf("render", "%v", err)
	}
	return r, nil
}
