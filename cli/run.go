package cli

// This file contains the plan and run commands.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/benchcamp/campaign"
	"github.com/perfgo/benchcamp/cli/ssh"
	"github.com/perfgo/benchcamp/config"
	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/executor"
	"github.com/perfgo/benchcamp/kind"
	"github.com/perfgo/benchcamp/model"
)

// loadConfig reads --config or the built-in plan of --kind, applies the
// flag overrides and resolves the result.
func (a *App) loadConfig(ctx *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	switch path, name := ctx.String("config"), ctx.String("kind"); {
	case path != "" && name != "":
		return nil, model.Configf("config", "--config and --kind are mutually exclusive")
	case path != "":
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	case name != "":
		cfg = config.ForKind(name, false)
	default:
		return nil, model.Configf("config", "either --config or --kind is required")
	}

	if err := applyFlags(ctx, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(ctx *cli.Context, cfg *config.Config) error {
	if ctx.IsSet("brief") {
		cfg.Brief = ctx.Bool("brief")
	}
	if ctx.IsSet("out-dir") {
		cfg.OutDir = ctx.String("out-dir")
	}
	if ctx.IsSet("duration") {
		d := ctx.Duration("duration")
		if d <= 0 {
			return model.Configf("duration", "must be positive, got %s", d)
		}
		cfg.Duration = d
	}
	if ctx.IsSet("ledger") {
		cfg.Ledger = ctx.String("ledger")
	}
	if ctx.IsSet("fresh") {
		cfg.Fresh = ctx.Bool("fresh")
	}
	if ctx.IsSet("continue-on-error") {
		cfg.ContinueOnError = ctx.Bool("continue-on-error")
	}
	if ctx.IsSet("plan-only") {
		cfg.PlanOnly = ctx.Bool("plan-only")
	}
	return nil
}

func (a *App) plan(ctx *cli.Context) error {
	runner := campaign.New(campaign.Options{Logger: a.logger, Out: a.out})

	if !ctx.Bool("all") {
		cfg, err := a.loadConfig(ctx)
		if err != nil {
			return err
		}
		p, err := runner.Plan(cfg)
		if err != nil {
			return err
		}
		return p.Write(a.out)
	}

	// every built-in plan, the way a full suite would run them
	var total time.Duration
	for _, name := range kind.PresetNames() {
		cfg := config.ForKind(name, false)
		if err := applyFlags(ctx, cfg); err != nil {
			return err
		}
		if err := cfg.Resolve(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		p, err := runner.Plan(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := p.Write(a.out); err != nil {
			return err
		}
		fmt.Fprintln(a.out)
		total += p.Estimate.Total()
	}
	fmt.Fprintf(a.out, "All campaigns: %s\n", estimate.FormatDuration(total))
	return nil
}

func (a *App) run(ctx *cli.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := campaign.Options{
		Logger: a.logger,
		Out:    a.out,
		Args:   os.Args,
	}

	// Capture git info (non-fatal if it fails)
	if commit, branch, err := a.getGitInfo(runCtx); err == nil {
		opts.Git = &model.Git{
			Commit: commit,
			Branch: branch,
		}
	} else {
		a.logger.Debug().Err(err).Msg("No git information")
	}

	if !cfg.PlanOnly {
		if len(cfg.Shell.Run) == 0 {
			return model.Configf("shell.run", "no run commands configured")
		}
		targets, infos, closeTargets, err := a.openTargets(runCtx, cfg)
		if err != nil {
			return err
		}
		defer closeTargets()
		opts.Targets = infos

		renderer, err := cfg.Renderer()
		if err != nil {
			return err
		}
		step, err := executor.NewShell(executor.ShellOptions{
			Logger:   a.logger,
			Targets:  targets,
			Config:   cfg.Shell,
			Renderer: renderer,
			Duration: cfg.Duration,
		})
		if err != nil {
			return err
		}
		opts.Step = step
	}

	res, err := campaign.New(opts).Run(runCtx, cfg)
	if res != nil && res.Summary != nil && len(res.Summary.Stats)+len(res.Summary.Failed) > 0 {
		if werr := res.Summary.Write(a.out); werr != nil {
			a.logger.Warn().Err(werr).Msg("Failed to print summary")
		}
	}
	return err
}

// openTargets connects to every target the shell configuration refers to.
// The returned function closes all of them.
func (a *App) openTargets(ctx context.Context, cfg *config.Config) (map[string]executor.Target, []model.Target, func(), error) {
	targets := map[string]executor.Target{}
	var infos []model.Target
	var clients []*ssh.Client
	closeAll := func() {
		for _, c := range clients {
			if err := c.Close(); err != nil {
				a.logger.Debug().Err(err).Str("host", c.Host()).Msg("Failed to close SSH connection")
			}
		}
	}

	for _, name := range cfg.Shell.Targets() {
		t, ok := cfg.Targets[name]
		if !ok {
			closeAll()
			return nil, nil, nil, model.Configf("targets", "target %q is not defined", name)
		}

		if t.SSH == "" {
			targets[name] = executor.NewLocal(a.logger, t.Local)
			infos = append(infos, model.Target{Name: name, OS: runtime.GOOS, Arch: runtime.GOARCH})
			continue
		}

		a.logger.Info().Str("target", name).Str("host", t.SSH).Msg("Connecting to remote host")
		client, err := ssh.New(ctx, a.logger, t.SSH, sshOptions(t)...)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("target %s: %w", name, err)
		}
		clients = append(clients, client)
		targets[name] = client

		info := model.Target{Name: name, RemoteHost: t.SSH}
		if remoteOS, remoteArch, err := client.DetectSystem(ctx); err == nil {
			info.OS, info.Arch = remoteOS, remoteArch
			a.logger.Info().
				Str("target", name).
				Str("os", remoteOS).
				Str("arch", remoteArch).
				Msg("Detected remote system")
		} else {
			a.logger.Warn().Err(err).Str("target", name).Msg("Failed to detect remote system")
		}
		infos = append(infos, info)
	}
	return targets, infos, closeAll, nil
}

func sshOptions(t config.Target) []ssh.SSHOption {
	var opts []ssh.SSHOption
	if t.IdentityFile != "" {
		opts = append(opts, ssh.WithIdentityFile(t.IdentityFile))
	}
	if t.KnownHostsFile != "" {
		opts = append(opts, ssh.WithKnownHostsFile(t.KnownHostsFile))
	}
	if t.ProxyCommand != "" {
		opts = append(opts, ssh.WithProxyCommand(t.ProxyCommand))
	}
	if len(t.Options) > 0 {
		opts = append(opts, ssh.WithExtraOptions(t.Options...))
	}
	return opts
}
