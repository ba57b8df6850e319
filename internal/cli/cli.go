package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/specialistvlad/burstgraph/internal/app"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/scheduler"
	cli "github.com/urfave/cli/v3"
)

// Run parses args, which exclude the program name, and executes the selected
// command. Every returned error is an *ExitError.
func Run(ctx context.Context, outW io.Writer, args []string, opts ...app.Option) error {
	cmd := NewCommand(outW, opts...)
	err := cmd.Run(ctx, append([]string{cmd.Name}, args...))
	return toExitError(err)
}

// NewCommand builds the root command. opts are passed to every App it creates.
func NewCommand(outW io.Writer, opts ...app.Option) *cli.Command {
	defaults := app.DefaultConfig()
	return &cli.Command{
		Name:  "burstgraph",
		Usage: "Compute dependency graphs of nodes, reusing cached results",
		Description: "Scenes are .hcl, .yaml or .yml files (or directories of them) declaring nodes.\n" +
			"Each node runs once its inputs are computed; outputs are cached by fingerprint.",
		Writer:    outW,
		ErrWriter: outW,
		// Exit codes are decided by the caller, never by the library.
		ExitErrHandler:  func(context.Context, *cli.Command, error) {},
		HideHelpCommand: true,
		OnUsageError:    onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   defaults.LogLevel,
				Sources: cli.EnvVars("BURSTGRAPH_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log output format (text, json)",
				Value:   defaults.LogFormat,
				Sources: cli.EnvVars("BURSTGRAPH_LOG_FORMAT"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of nodes computed concurrently",
				Value:   defaults.WorkerCount,
				Sources: cli.EnvVars("BURSTGRAPH_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "cache",
				Usage:   "Output cache: a directory, file://, mem://, redis:// or postgres:// URL",
				Value:   defaults.CacheURL,
				Sources: cli.EnvVars("BURSTGRAPH_CACHE"),
			},
			&cli.IntFlag{
				Name:    "status-port",
				Usage:   "Port for the status HTTP server. 0 is disabled.",
				Value:   defaults.StatusPort,
				Sources: cli.EnvVars("BURSTGRAPH_STATUS_PORT"),
			},
			&cli.StringFlag{
				Name:    "events",
				Usage:   "Node status event bus (none, gochannel, kafka://broker1,broker2)",
				Value:   defaults.Events,
				Sources: cli.EnvVars("BURSTGRAPH_EVENTS"),
			},
			&cli.StringFlag{
				Name:    "otel-endpoint",
				Usage:   "OTLP/HTTP endpoint for traces. Empty disables export.",
				Sources: cli.EnvVars("BURSTGRAPH_OTEL_ENDPOINT"),
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return usageError(fmt.Sprintf("unknown command %q", cmd.Args().First()))
			}
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			guiCommand(),
			computeNodeCommand(outW, opts),
			computeGraphCommand(outW, opts),
		},
	}
}

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return usageError(err.Error())
}

func configFrom(cmd *cli.Command) app.Config {
	return app.Config{
		LogLevel:     strings.ToLower(cmd.String("log-level")),
		LogFormat:    strings.ToLower(cmd.String("log-format")),
		WorkerCount:  cmd.Int("workers"),
		CacheURL:     cmd.String("cache"),
		StatusPort:   cmd.Int("status-port"),
		Events:       cmd.String("events"),
		OTelEndpoint: cmd.String("otel-endpoint"),
	}
}

// withApp creates an App from the global flags, runs fn and closes the App.
func withApp(ctx context.Context, cmd *cli.Command, outW io.Writer, opts []app.Option, fn func(*app.App) error) (err error) {
	a, err := app.New(ctx, outW, configFrom(cmd), opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			a.Logger().Error("Failed to close application.", "error", cerr)
		}
	}()
	return fn(a)
}

func guiCommand() *cli.Command {
	return &cli.Command{
		Name:  "gui",
		Usage: "Open the interactive editor (not available in this build)",
		Action: func(context.Context, *cli.Command) error {
			return &ExitError{Code: ExitFailure, Message: "GUI mode is not available"}
		},
	}
}

func computeNodeCommand(outW io.Writer, opts []app.Option) *cli.Command {
	return &cli.Command{
		Name:      "compute-node",
		Usage:     "Run a single node of the given type, without a scene or cache",
		ArgsUsage: "<type> [key=value | arg]...",
		// Everything after the type belongs to the node.
		SkipFlagParsing: true,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return usageError("compute-node requires a node type")
			}
			return withApp(ctx, cmd, outW, opts, func(a *app.App) error {
				out, err := a.ComputeNode(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				raw, err := ctyutil.ToJSON(out)
				if err != nil {
					return fmt.Errorf("encode output: %w", err)
				}
				_, err = fmt.Fprintln(outW, string(raw))
				return err
			})
		},
	}
}

func computeGraphCommand(outW io.Writer, opts []app.Option) *cli.Command {
	return &cli.Command{
		Name:         "compute-graph",
		Usage:        "Load a scene and compute a node, or every node",
		ArgsUsage:    "<scene>",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "node",
				Aliases: []string{"n"},
				Usage:   "Target node id. Empty computes the whole graph.",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Build mode (incremental, full, single)",
				Value:   scheduler.Incremental.String(),
				Sources: cli.EnvVars("BURSTGRAPH_MODE"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return usageError("compute-graph requires exactly one scene path")
			}
			mode, err := scheduler.ParseMode(cmd.String("mode"))
			if err != nil {
				return usageError(err.Error())
			}
			return withApp(ctx, cmd, outW, opts, func(a *app.App) error {
				res, err := a.ComputeGraph(ctx, cmd.Args().First(), cmd.String("node"), mode)
				if res != nil {
					report(outW, res)
				}
				if err != nil {
					return err
				}
				if !res.OK() {
					return &ExitError{Code: ExitFailure, Message: failureMessage(res)}
				}
				return nil
			})
		},
	}
}

// report prints a summary of a run, naming every failed and blocked node.
func report(w io.Writer, res *scheduler.Result) {
	fmt.Fprintf(w, "run %s (%s): %d computed, %d reused, %d failed, %d blocked in %s\n",
		res.RunID, res.Mode, len(res.Succeeded), len(res.Skipped), len(res.Failed), len(res.Blocked), res.Duration.Round(time.Millisecond))
	for _, id := range res.Failed {
		fmt.Fprintf(w, "  failed  %s: %v\n", id, res.Errors[id])
	}
	for _, id := range res.Blocked {
		fmt.Fprintf(w, "  blocked %s: %v\n", id, res.Errors[id])
	}
}

func failureMessage(res *scheduler.Result) string {
	var b strings.Builder
	b.WriteString("compute failed")
	if len(res.Failed) > 0 {
		fmt.Fprintf(&b, "; failed: %s", strings.Join(res.Failed, ", "))
	}
	if len(res.Blocked) > 0 {
		fmt.Fprintf(&b, "; blocked: %s", strings.Join(res.Blocked, ", "))
	}
	return b.String()
}
