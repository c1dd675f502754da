package cli

// This file contains the show command for displaying one previous campaign.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/perfgo/benchcamp/history"
	"github.com/perfgo/benchcamp/report"
)

// parseShowArgs returns the campaign selector, defaulting to the latest
// campaign. A leading "--" is dropped so negative indexes can be passed.
func parseShowArgs(in []string) (string, error) {
	if len(in) > 0 && in[0] == "--" {
		in = in[1:]
	}
	switch len(in) {
	case 0:
		return "0", nil
	case 1:
		if n, err := strconv.ParseInt(in[0], 10, 64); err == nil && n > 0 {
			return "", fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", in[0])
		}
		return in[0], nil
	default:
		return "", fmt.Errorf("expected at most one campaign, got %d arguments", len(in))
	}
}

func (a *App) show(ctx *cli.Context) error {
	arg, err := parseShowArgs(ctx.Args().Slice())
	if err != nil {
		return err
	}

	entries, err := history.LoadCampaigns(a.logger, ctx.String("out-dir"))
	if err != nil {
		return fmt.Errorf("failed to load campaigns: %w", err)
	}

	entry, err := history.Find(entries, arg)
	if err != nil {
		return err
	}

	a.printCampaign(*entry)
	c := entry.Campaign
	if len(c.ReconfigurationKey) > 0 {
		fmt.Fprintf(a.out, "   Reconfiguration key: %v\n", c.ReconfigurationKey)
	}
	if c.MeasurementDuration > 0 {
		fmt.Fprintf(a.out, "   Measurement: %s per repetition\n", c.MeasurementDuration)
	}
	if c.Error != "" {
		fmt.Fprintf(a.out, "   Error: %s\n", c.Error)
	}

	// Display the summary when the campaign got far enough to write one
	data, err := os.ReadFile(report.SummaryPath(entry.FullPath, c.Kind))
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(a.out, "\nNo summary written")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}
	fmt.Fprintf(a.out, "\n%s", data)
	return nil
}
