package cli

// This file contains the status and report commands, which inspect a
// campaign directory without running anything.

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/benchcamp/campaign"
	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/history"
	"github.com/perfgo/benchcamp/ledger"
	"github.com/perfgo/benchcamp/model"
	"github.com/perfgo/benchcamp/report"
)

func (a *App) status(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	runner := campaign.New(campaign.Options{Logger: a.logger})
	plan, err := runner.Plan(cfg)
	if err != nil {
		return err
	}

	dir := cfg.CampaignDir()
	entries, err := ledger.Read(ctx.Context, cfg.Ledger, dir)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	done := ledger.Set(entries)

	var pending []model.Record
	completed := 0
	for _, r := range plan.Records {
		if done[r.Identity()] {
			completed++
		} else {
			pending = append(pending, r)
		}
	}
	remaining, err := runner.Estimate(cfg, plan.Kind, pending)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Campaign %s (%s)\n", cfg.Name, plan.Kind.Name())
	fmt.Fprintf(a.out, "   Dir: %s\n", dir)
	fmt.Fprintf(a.out, "   Records: %d  Done: %d  Pending: %d\n", len(plan.Records), completed, len(pending))
	fmt.Fprintf(a.out, "   Remaining: %s (%d reconfigurations)\n", estimate.FormatDuration(remaining.Total()), remaining.Reconfigurations)

	if meta, err := history.Read(dir); err == nil {
		fmt.Fprintf(a.out, "   Last launch: %s  %s  id=%s\n",
			meta.Status, meta.Timestamp.Format("2006-01-02 15:04:05"), shortID(meta.ID))
		if meta.Error != "" {
			fmt.Fprintf(a.out, "   Error: %s\n", meta.Error)
		}
	}

	if len(pending) > 0 {
		fmt.Fprintln(a.out, "\nPending:")
		for i, r := range pending {
			if limit > 0 && i >= limit {
				fmt.Fprintf(a.out, "   ... %d more\n", len(pending)-limit)
				break
			}
			fmt.Fprintf(a.out, "   %s\n", r.Identity())
		}
	}
	return nil
}

func (a *App) report(ctx *cli.Context) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	plan, err := campaign.New(campaign.Options{Logger: a.logger}).Plan(cfg)
	if err != nil {
		return err
	}

	dir := cfg.CampaignDir()
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("campaign %s has not run yet: %w", cfg.Name, err)
	}

	rep, err := report.Build(a.logger, plan.Records, dir, plan.Kind)
	if err != nil {
		return err
	}
	sum, err := report.Summarize(rep)
	if err != nil {
		return err
	}
	if len(rep.Rows) > 0 {
		path, err := sum.WriteFile(dir)
		if err != nil {
			return err
		}
		a.logger.Info().Str("path", path).Int("failed_rows", rep.Failed()).Msg("Wrote summary")
	}
	return sum.Write(a.out)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
