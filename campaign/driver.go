package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/bench"
	"github.com/perfgo/benchcamp/executor"
	"github.com/perfgo/benchcamp/group"
	"github.com/perfgo/benchcamp/kind"
	"github.com/perfgo/benchcamp/metrics"
	"github.com/perfgo/benchcamp/model"
)

// driver walks the pending records of one launch.
type driver struct {
	logger  zerolog.Logger
	step    executor.Step
	sess    *bench.Session
	kind    kind.Kind
	key     []string
	metrics *metrics.Metrics
	now     func() time.Time

	// key values the environment is currently configured for
	configured []model.Value
	failed     int
}

func (d *driver) run(ctx context.Context, pending []model.Record, iterate []string, continueOnError bool) error {
	grouping, err := group.New(pending, iterate)
	if err != nil {
		return err
	}

	var errs []error
	for _, g := range grouping.Groups() {
		d.logger.Info().
			Strs("group", valueStrings(g.Values)).
			Int("records", len(g.Items)).
			Str("matrix", model.MatrixString(g.Items)).
			Msg("Starting group")

		for _, r := range g.Items {
			if ctx.Err() != nil {
				return errors.Join(append(errs, ctx.Err())...)
			}

			err := d.record(ctx, r)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				// the step saw the cancellation; the record stays pending
				return errors.Join(append(errs, ctx.Err())...)
			}
			var runErr *RunError
			if !errors.As(err, &runErr) {
				return err
			}

			d.failed++
			d.logger.Error().Err(runErr.Err).Str("record", runErr.Identity).Int("repetition", runErr.Repetition).Msg("Record failed")
			if !continueOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// record reconfigures if needed, runs every repetition of r and marks it
// done. Step failures are returned as *RunError; ledger failures as is.
func (d *driver) record(ctx context.Context, r model.Record) error {
	key, err := r.Key(d.key)
	if err != nil {
		return err
	}

	if d.configured == nil || !sameValues(key, d.configured) {
		d.configured = nil
		if err := d.step.Reconfigure(ctx, r); err != nil {
			d.metrics.Failures.WithLabelValues("reconfigure").Inc()
			return &RunError{Identity: r.Identity(), Repetition: -1, Err: err}
		}
		d.configured = key
		d.metrics.Reconfigurations.Inc()
	}

	for rep := 0; rep < r.Repetitions(); rep++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		out := executor.Output{
			Dir:  d.sess.Dir(),
			Path: d.sess.OutputPath(r, rep, d.kind.Extension()),
		}
		d.logger.Debug().Str("record", r.Identity()).Int("repetition", rep).Str("output", out.Path).Msg("Running repetition")

		start := d.now()
		err := d.step.Run(ctx, model.Run{Record: r, Repetition: rep}, out)
		d.metrics.ObserveRun(d.now().Sub(start), err)
		if err != nil {
			d.metrics.Failures.WithLabelValues("run").Inc()
			return &RunError{Identity: r.Identity(), Repetition: rep, Err: err}
		}
	}

	if err := d.sess.Done(ctx, r); err != nil {
		return fmt.Errorf("failed to mark %s done: %w", r.Identity(), err)
	}
	d.metrics.RecordsDone.Inc()
	d.metrics.Pending.Dec()
	return nil
}

func sameValues(a, b []model.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valueStrings(values []model.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
