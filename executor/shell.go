package executor

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/artifact"
	"github.com/perfgo/benchcamp/model"
)

// Command is a command template run on one or more targets. When several
// targets are listed the command runs on all of them concurrently.
type Command struct {
	Targets []string `yaml:"targets" validate:"required,min=1"`
	Command string   `yaml:"command" validate:"required"`
}

// Collect copies a file produced on a target into the campaign directory.
type Collect struct {
	Target string `yaml:"target" validate:"required"`
	// Remote is a path template on the target.
	Remote string `yaml:"remote" validate:"required"`
	// Extension of the local artifact; empty means the kind's measurement
	// artifact.
	Extension string `yaml:"extension"`
}

// ShellConfig describes a campaign's side effects as command templates.
//
// Templates see every record field by dimension name, plus Identity,
// Repetition, Duration (seconds), Output (local artifact path) and Config
// (remote path of the rendered configuration). The quote function shell
// quotes its argument.
type ShellConfig struct {
	Reconfigure []Command `yaml:"reconfigure" validate:"dive"`
	Run         []Command `yaml:"run" validate:"dive"`
	Collect     []Collect `yaml:"collect" validate:"dive"`
	// ConfigPath is the remote path template the rendered configuration is
	// copied to on ConfigTargets.
	ConfigPath    string   `yaml:"config_path"`
	ConfigTargets []string `yaml:"config_targets"`
}

// Targets returns every target name the configuration refers to, sorted.
func (c ShellConfig) Targets() []string {
	seen := map[string]bool{}
	for _, cmds := range [][]Command{c.Reconfigure, c.Run} {
		for _, cmd := range cmds {
			for _, t := range cmd.Targets {
				seen[t] = true
			}
		}
	}
	for _, col := range c.Collect {
		seen[col.Target] = true
	}
	for _, t := range c.ConfigTargets {
		seen[t] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ShellOptions configure a Shell step.
type ShellOptions struct {
	Logger  zerolog.Logger
	Targets map[string]Target
	Config  ShellConfig
	// Renderer is optional; without it no configuration is shipped.
	Renderer Renderer
	// Duration is the measurement time handed to templates.
	Duration time.Duration
}

type compiled struct {
	targets []string
	tmpl    *template.Template
}

// Shell is a Step driven by command templates.
type Shell struct {
	logger   zerolog.Logger
	targets  map[string]Target
	renderer Renderer
	duration time.Duration

	reconfigure []compiled
	run         []compiled
	collect     []Collect
	collectTmpl []*template.Template
	configPath  *template.Template
	configOn    []string
}

// NewShell parses every template and checks that all referenced targets
// exist.
func NewShell(opts ShellOptions) (*Shell, error) {
	for _, name := range opts.Config.Targets() {
		if _, ok := opts.Targets[name]; !ok {
			return nil, model.Configf("targets", "target %q is not defined", name)
		}
	}
	if opts.Renderer != nil && (opts.Config.ConfigPath == "" || len(opts.Config.ConfigTargets) == 0) {
		return nil, model.Configf("config_path", "a rendered configuration needs config_path and config_targets")
	}

	s := &Shell{
		logger:   opts.Logger,
		targets:  opts.Targets,
		renderer: opts.Renderer,
		duration: opts.Duration,
		collect:  opts.Config.Collect,
		configOn: opts.Config.ConfigTargets,
	}

	var err error
	if s.reconfigure, err = compile("reconfigure", opts.Config.Reconfigure); err != nil {
		return nil, err
	}
	if s.run, err = compile("run", opts.Config.Run); err != nil {
		return nil, err
	}
	for i, col := range opts.Config.Collect {
		if err := artifact.ValidExtension(col.Extension); col.Extension != "" && err != nil {
			return nil, model.Configf("collect", "%v", err)
		}
		t, err := parse(fmt.Sprintf("collect[%d]", i), col.Remote)
		if err != nil {
			return nil, err
		}
		s.collectTmpl = append(s.collectTmpl, t)
	}
	if opts.Config.ConfigPath != "" {
		if s.configPath, err = parse("config_path", opts.Config.ConfigPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func compile(phase string, cmds []Command) ([]compiled, error) {
	out := make([]compiled, 0, len(cmds))
	for i, c := range cmds {
		t, err := parse(fmt.Sprintf("%s[%d]", phase, i), c.Command)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled{targets: c.Targets, tmpl: t})
	}
	return out, nil
}

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(TemplateFuncs()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, model.Configf(name, "invalid template: %v", err)
	}
	return t, nil
}

func (s *Shell) data(r model.Record) map[string]any {
	d := r.Map()
	d["Identity"] = r.Identity()
	d["Duration"] = int64(s.duration / time.Second)
	return d
}

// Reconfigure runs the reconfigure commands for the group starting at r.
func (s *Shell) Reconfigure(ctx context.Context, r model.Record) error {
	s.logger.Info().Str("record", r.Identity()).Msg("Reconfiguring environment")
	return s.exec(ctx, s.reconfigure, s.data(r))
}

// Run ships the rendered configuration, runs the run commands and collects
// the artifacts of one repetition.
func (s *Shell) Run(ctx context.Context, run model.Run, out Output) error {
	data := s.data(run.Record)
	data["Repetition"] = run.Repetition
	data["Output"] = out.Path

	if s.renderer != nil {
		if err := s.shipConfig(ctx, run, out, data); err != nil {
			return err
		}
	}

	if err := s.exec(ctx, s.run, data); err != nil {
		return err
	}

	for i, col := range s.collect {
		remote, err := execute(s.collectTmpl[i], data)
		if err != nil {
			return fmt.Errorf("failed to render collect path: %w", err)
		}
		local := out.Path
		if col.Extension != "" {
			local = artifact.Path(out.Dir, run.Record, run.Repetition, col.Extension)
		}
		if err := s.targets[col.Target].CopyFrom(ctx, remote, local); err != nil {
			return fmt.Errorf("failed to collect %s from %s: %w", remote, col.Target, err)
		}
	}
	return nil
}

func (s *Shell) shipConfig(ctx context.Context, run model.Run, out Output, data map[string]any) error {
	files, text, err := s.renderer.RenderConfig(run.Record)
	if err != nil {
		return err
	}
	remote, err := execute(s.configPath, data)
	if err != nil {
		return fmt.Errorf("failed to render config path: %w", err)
	}
	data["Config"] = remote

	local := artifact.Path(out.Dir, run.Record, run.Repetition, "config")
	if err := os.WriteFile(local, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", local, err)
	}

	return ForEach(ctx, s.configOn, func(n string) string { return n }, func(ctx context.Context, name string) error {
		t := s.targets[name]
		if _, err := t.RunCommand(ctx, MkdirCommand(path.Dir(remote))); err != nil {
			return err
		}
		if err := t.CopyTo(ctx, local, remote); err != nil {
			return err
		}
		for _, f := range files {
			if err := t.CopyTo(ctx, f, path.Join(path.Dir(remote), path.Base(f))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Shell) exec(ctx context.Context, cmds []compiled, data map[string]any) error {
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		command, err := execute(c.tmpl, data)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", c.tmpl.Name(), err)
		}
		err = ForEach(ctx, c.targets, func(n string) string { return n }, func(ctx context.Context, name string) error {
			out, err := s.targets[name].RunCommand(ctx, command)
			s.logger.Debug().Str("target", name).Str("command", command).Str("output", out).Msg("Command finished")
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
