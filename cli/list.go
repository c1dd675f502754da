package cli

// This file contains the list command for displaying previous campaigns.

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/benchcamp/estimate"
	"github.com/perfgo/benchcamp/history"
	"github.com/perfgo/benchcamp/model"
)

func (a *App) list(ctx *cli.Context) error {
	root := ctx.String("out-dir")
	filterKind := ctx.String("kind")
	limit := ctx.Int("limit")

	entries, err := history.LoadCampaigns(a.logger, root)
	if err != nil {
		return fmt.Errorf("failed to load campaigns: %w", err)
	}

	// Apply kind filter if specified
	var filtered []history.Entry
	for _, entry := range entries {
		if filterKind == "" || entry.Campaign.Kind == filterKind {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterKind != "" {
			fmt.Fprintf(a.out, "No campaigns found of kind: %s\n", filterKind)
		} else {
			fmt.Fprintln(a.out, "No campaigns found")
			fmt.Fprintf(a.out, "Campaigns are saved to %s/<name>/\n", root)
		}
		return nil
	}

	// Apply limit
	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Fprintf(a.out, "\n=== Campaigns (%d total) ===\n\n", len(filtered))

	for _, entry := range display {
		a.printCampaign(entry)
		fmt.Fprintln(a.out)
	}

	fmt.Fprintln(a.out, "Show a campaign: benchcamp show <NAME|ID>")

	return nil
}

func statusIndicator(s model.CampaignStatus) string {
	switch s {
	case model.CampaignCompleted:
		return "✓"
	case model.CampaignFailed:
		return "✗"
	case model.CampaignInterrupted:
		return "‖"
	default:
		return "…"
	}
}

func (a *App) printCampaign(entry history.Entry) {
	c := entry.Campaign
	timestamp := c.Timestamp.Format("2006-01-02 15:04:05")
	duration := c.Duration.Round(time.Second)

	fmt.Fprintf(a.out, "%s  %s  [%s]  %s  %s  id=%s\n",
		statusIndicator(c.Status), timestamp, duration, c.Name, c.Kind, shortID(c.ID))
	fmt.Fprintf(a.out, "   Records: %d  Done: %d  Failed: %d  Estimate: %s\n",
		c.Records, c.Done, c.Failed, estimate.FormatDuration(c.Estimate))
	if len(c.Args) > 1 {
		fmt.Fprintf(a.out, "   Args: %s\n", strings.Join(c.Args[1:], " "))
	}
	for _, t := range c.Targets {
		if t.RemoteHost != "" {
			fmt.Fprintf(a.out, "   %s: %s", t.Name, t.RemoteHost)
		} else {
			fmt.Fprintf(a.out, "   %s: local", t.Name)
		}
		if t.OS != "" && t.Arch != "" {
			fmt.Fprintf(a.out, " (%s/%s)", t.OS, t.Arch)
		}
		fmt.Fprintln(a.out)
	}
	if c.Git != nil && c.Git.Commit != "" {
		shortCommit := c.Git.Commit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		fmt.Fprintf(a.out, "   Commit: %s", shortCommit)
		if c.Git.Branch != "" {
			fmt.Fprintf(a.out, " (%s)", c.Git.Branch)
		}
		fmt.Fprintln(a.out)
	}
	fmt.Fprintf(a.out, "   %s\n", entry.FullPath)
}
