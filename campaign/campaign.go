// Package campaign drives a benchmark campaign: it expands the matrix,
// estimates it, then walks the pending records group by group, reconfiguring
// the environment only when the reconfiguration key changes.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/bench"
	"github.com/perfgo/benchcamp/config"
	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/executor"
	"github.com/perfgo/benchcamp/group"
	"github.com/perfgo/benchcamp/history"
	"github.com/perfgo/benchcamp/kind"
	"github.com/perfgo/benchcamp/matrix"
	"github.com/perfgo/benchcamp/metrics"
	"github.com/perfgo/benchcamp/model"
	"github.com/perfgo/benchcamp/report"
)

// MetricsFile is the Prometheus textfile written into the campaign
// directory.
const MetricsFile = "metrics.prom"

// RunError is the failure of one record. Repetition is -1 when the
// reconfiguration before the record failed.
type RunError struct {
	Identity   string
	Repetition int
	Err        error
}

func (e *RunError) Error() string {
	if e.Repetition < 0 {
		return fmt.Sprintf("%s: reconfigure: %v", e.Identity, e.Err)
	}
	return fmt.Sprintf("%s: repetition %d: %v", e.Identity, e.Repetition, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Options configure a Runner.
type Options struct {
	Logger zerolog.Logger
	// Step performs the side effects. It may be nil for plan-only use.
	Step executor.Step
	// Out receives printed plans.
	Out     io.Writer
	Args    []string
	Git     *model.Git
	Targets []model.Target
	// Now defaults to time.Now.
	Now func() time.Time
}

// Runner plans and runs campaigns.
type Runner struct {
	logger  zerolog.Logger
	step    executor.Step
	out     io.Writer
	args    []string
	git     *model.Git
	targets []model.Target
	now     func() time.Time
}

func New(opts Options) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		logger:  opts.Logger,
		step:    opts.Step,
		out:     out,
		args:    opts.Args,
		git:     opts.Git,
		targets: opts.Targets,
		now:     now,
	}
}

// Plan is an expanded and estimated campaign.
type Plan struct {
	Config *config.Config
	Kind   kind.Kind
	// Records in expansion order.
	Records []model.Record
	// Estimate over the records in visiting order.
	Estimate estimate.Plan
}

// Write prints the plan.
func (p *Plan) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Campaign %s (%s): %d records, %s per repetition\n",
		p.Config.Name, p.Kind.Name(), len(p.Records), p.Config.Duration); err != nil {
		return err
	}
	return p.Estimate.Write(w)
}

func (r *Runner) settings(cfg *config.Config) estimate.Settings {
	return estimate.Settings{
		Duration:            cfg.Duration,
		ReconfigurationCost: cfg.ReconfigurationCost,
	}
}

// Plan expands and estimates cfg without any side effect. cfg must be
// resolved.
func (r *Runner) Plan(cfg *config.Config) (*Plan, error) {
	k, err := kind.Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}

	records, err := matrix.Expand(cfg.Matrix.Matrix, matrix.AnyOf(k.Exclude, cfg.Rules().Func()))
	if err != nil {
		return nil, err
	}

	est, err := r.Estimate(cfg, k, records)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("campaign", cfg.Name).
		Int("records", len(records)).
		Str("matrix", model.MatrixString(records)).
		Msg("Expanded test matrix")

	return &Plan{Config: cfg, Kind: k, Records: records, Estimate: est}, nil
}

// Result is the outcome of a launch.
type Result struct {
	Plan     *Plan
	Campaign *model.Campaign
	// Summary is nil for plan-only and interrupted launches.
	Summary *report.Summary
}

// Run executes cfg. Records already marked done by an earlier launch are
// skipped unless cfg.Fresh is set. Per-record failures are returned joined
// when cfg.ContinueOnError is set; otherwise the first one stops the
// campaign. Cancelling ctx stops the campaign between steps; the ledger
// stays consistent and a later launch resumes.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	plan, err := r.Plan(cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{Plan: plan}

	if cfg.PlanOnly {
		return res, plan.Write(r.out)
	}
	if r.step == nil {
		return nil, model.Configf("shell", "no execution step configured")
	}

	start := r.now()
	meta := &model.Campaign{
		ID:                  uuid.NewString(),
		Name:                cfg.Name,
		Kind:                plan.Kind.Name(),
		Timestamp:           start,
		Args:                r.args,
		Status:              model.CampaignRunning,
		Estimate:            plan.Estimate.Total(),
		MeasurementDuration: cfg.Duration,
		ReconfigurationKey:  cfg.Key,
		Records:             len(plan.Records),
		Git:                 r.git,
		Targets:             r.targets,
	}
	res.Campaign = meta

	sess, pending, err := bench.Open(ctx, plan.Records, cfg.Key, bench.Options{
		Dir:     cfg.CampaignDir(),
		Resume:  !cfg.Fresh,
		Backend: cfg.Ledger,
		Logger:  r.logger,
		Now:     r.now,
	})
	if err != nil {
		return res, err
	}
	defer sess.Close()

	logger := r.logger.With().Str("campaign", cfg.Name).Str("id", meta.ID).Logger()
	m := metrics.New(cfg.Name, plan.Kind.Name())
	m.Pending.Set(float64(len(pending)))
	meta.Resumed = len(pending) < len(plan.Records)
	meta.Done = sess.Completed()

	remaining, err := r.Estimate(cfg, plan.Kind, pending)
	if err != nil {
		return res, err
	}
	m.Estimate.Set(remaining.Total().Seconds())
	logger.Info().
		Int("records", len(plan.Records)).
		Int("pending", len(pending)).
		Bool("resumed", meta.Resumed).
		Str("estimate", estimate.FormatDuration(remaining.Total())).
		Msg("Starting campaign")

	if err := history.Write(sess.Dir(), meta); err != nil {
		return res, err
	}

	d := &driver{
		logger:  logger,
		step:    r.step,
		sess:    sess,
		kind:    plan.Kind,
		key:     cfg.Key,
		metrics: m,
		now:     r.now,
	}
	runErr := d.run(ctx, pending, cfg.Iterate, cfg.ContinueOnError)

	if err := sess.Close(); err != nil && runErr == nil {
		runErr = err
	}

	meta.Done = sess.Completed()
	meta.Failed = d.failed
	meta.Duration = r.now().Sub(start)
	switch {
	case ctx.Err() != nil && errors.Is(runErr, ctx.Err()):
		meta.Status = model.CampaignInterrupted
		meta.Error = runErr.Error()
	case runErr != nil:
		meta.Status = model.CampaignFailed
		meta.Error = runErr.Error()
	default:
		meta.Status = model.CampaignCompleted
	}

	if meta.Status != model.CampaignInterrupted {
		res.Summary = r.report(logger, plan, sess.Dir())
	}

	if err := history.Write(sess.Dir(), meta); err != nil {
		logger.Warn().Err(err).Msg("Failed to record campaign")
	}
	if err := m.WriteTextfile(filepath.Join(sess.Dir(), MetricsFile)); err != nil {
		logger.Warn().Err(err).Msg("Failed to write metrics")
	}

	logger.Info().
		Str("status", string(meta.Status)).
		Int("done", meta.Done).
		Int("failed", meta.Failed).
		Dur("duration", meta.Duration.Round(time.Second)).
		Msg("Campaign finished")

	return res, runErr
}

// Estimate projects the cost of records, e.g. the pending part of a
// campaign, in the order the campaign visits them.
func (r *Runner) Estimate(cfg *config.Config, k kind.Kind, records []model.Record) (estimate.Plan, error) {
	ordered, err := group.Order(records, cfg.Iterate)
	if err != nil {
		return estimate.Plan{}, err
	}
	return estimate.Estimate(ordered, cfg.Key, k, r.settings(cfg))
}

// report parses the artifacts and writes the summary. Failures are logged;
// they never change the campaign's outcome.
func (r *Runner) report(logger zerolog.Logger, plan *Plan, dir string) *report.Summary {
	rep, err := report.Build(logger, plan.Records, dir, plan.Kind)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to build report")
		return nil
	}
	sum, err := report.Summarize(rep)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to summarize report")
		return nil
	}
	if len(rep.Rows) == 0 {
		return sum
	}
	path, err := sum.WriteFile(dir)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to write summary")
		return sum
	}
	logger.Info().Str("path", path).Int("failed_rows", rep.Failed()).Msg("Wrote summary")
	return sum
}
