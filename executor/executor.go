// Package executor holds the collaborators a campaign drives: the steps that
// reconfigure the environment and run one repetition, the targets they run
// commands on, and the renderer for per-record configuration text.
package executor

import (
	"context"

	"github.com/perfgo/benchcamp/model"
)

// Output tells a step where the artifacts of one repetition go.
type Output struct {
	// Dir is the campaign directory.
	Dir string
	// Path is the raw measurement artifact, "<dir>/<identity>_<rep>.<ext>".
	Path string
}

// Step performs the side effects of a campaign. Reconfigure is called with
// the first record of a group whenever a reconfiguration key value changes;
// Run is called once per repetition. Neither is retried by the campaign.
type Step interface {
	Reconfigure(ctx context.Context, r model.Record) error
	Run(ctx context.Context, run model.Run, out Output) error
}

// StepFuncs builds a Step from plain functions. Nil functions do nothing.
type StepFuncs struct {
	ReconfigureFunc func(ctx context.Context, r model.Record) error
	RunFunc         func(ctx context.Context, run model.Run, out Output) error
}

func (f StepFuncs) Reconfigure(ctx context.Context, r model.Record) error {
	if f.ReconfigureFunc == nil {
		return nil
	}
	return f.ReconfigureFunc(ctx, r)
}

func (f StepFuncs) Run(ctx context.Context, run model.Run, out Output) error {
	if f.RunFunc == nil {
		return nil
	}
	return f.RunFunc(ctx, run, out)
}
