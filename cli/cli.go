package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/benchcamp/config"
	"github.com/perfgo/benchcamp/ledger"
)

const AppName = "benchcamp"

type App struct {
	logger zerolog.Logger
	out    io.Writer
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	return newApp(logger, os.Stdout)
}

func newApp(logger zerolog.Logger, out io.Writer) *App {
	app := &App{
		logger: logger,
		out:    out,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Schedule long-running benchmark campaigns",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
			Writer: out,
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "plan",
		Usage:  "Print the expanded test plan and its estimated duration",
		Action: app.plan,
		Flags: append(campaignFlags(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Print the plans of every built-in benchmark kind",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Run a campaign, resuming where an earlier launch stopped",
		Action: app.run,
		Flags: append(campaignFlags(),
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Discard the done ledger and run every record again",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Keep going after a record fails; failed records stay pending",
			},
			&cli.BoolFlag{
				Name:  "plan-only",
				Usage: "Print the plan and exit without side effects",
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "status",
		Usage:  "Show done and pending records of a campaign",
		Action: app.status,
		Flags: append(campaignFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of pending records listed",
				Value:   20,
			},
		),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "report",
		Usage:  "Parse the artifacts of a campaign and print its summary",
		Action: app.report,
		Flags:  campaignFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous campaigns",
		Action: app.list,
		Flags: []cli.Flag{
			outDirFlag(),
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by benchmark kind",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a previous campaign",
		ArgsUsage: "[NAME|ID|INDEX]",
		Action:    app.show,
		Flags:     []cli.Flag{outDirFlag()},
		Description: `Show a previous campaign and its summary.

Arguments:
  0           Show the latest campaign (default)
  -1          Show the 2nd latest campaign
  <name>      Show the campaign with this name
  <hex-id>    Show the campaign matching the ID prefix

Examples:
  benchcamp show              # Show latest campaign
  benchcamp show -- -1        # Show 2nd latest campaign
  benchcamp show throughput   # Show the campaign named throughput`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

func outDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "out-dir",
		Usage: "Root directory of campaign outputs",
		Value: config.DefaultOutDir,
	}
}

func campaignFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Campaign description (YAML)",
		},
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Use the built-in plan of a benchmark kind instead of a config file",
		},
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "Root directory of campaign outputs (default: results)",
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "Measurement duration per repetition",
		},
		&cli.BoolFlag{
			Name:  "brief",
			Usage: "Use the reduced built-in plan",
		},
		&cli.StringFlag{
			Name:  "ledger",
			Usage: fmt.Sprintf("Done ledger backend (%s or %s)", ledger.BackendFile, ledger.BackendSQLite),
		},
	}
}
