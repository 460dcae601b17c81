// Package main provides the jobhealth CLI: per-job CI health for a
// Buildkite pipeline branch.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"jobhealth/src/broker"
	"jobhealth/src/config"
	"jobhealth/src/contracts"
	"jobhealth/src/logger"
	"jobhealth/src/mcp"
	"jobhealth/src/pipeline"
	"jobhealth/src/provider"
)

var (
	appConfig *config.Config
	log       logger.Logger

	// Flag values, applied over the environment in PersistentPreRunE
	flagOrg         string
	flagPipeline    string
	flagBranch      string
	flagLimit       int
	flagCommits     int
	flagFailingOnly bool
	flagSummary     bool
	flagVerbose     bool
	flagAllTargets  bool
)

var rootCmd = &cobra.Command{
	Use:   "jobhealth",
	Short: "jobhealth - per-job CI health for a Buildkite pipeline",
	Long: `jobhealth fetches the recent builds of a Buildkite pipeline branch and
reports, for every job, how it has been doing: its latest state, how often
it ran and its per-build history. Failed required jobs are listed first.

Configuration is read from the environment (BUILDKITE_API_TOKEN,
BUILDKITE_ORG, BUILDKITE_PIPELINE, BUILDKITE_BRANCH, ...) and can be
overridden with flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		appConfig = cfg

		log, err = newLogger(cfg, flagVerbose)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if !cfg.HasCredential() {
			log.Info("BUILDKITE_API_TOKEN is not set; builds will not be fetched")
		}
		return nil
	},
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("org") {
		cfg.Org = flagOrg
	}
	if flags.Changed("pipeline") {
		cfg.Pipeline = flagPipeline
	}
	if flags.Changed("branch") {
		cfg.Branch = flagBranch
	}
	if flags.Changed("limit") {
		cfg.BuildLimit = flagLimit
	}
	if flags.Changed("commits") {
		cfg.TargetCommits = flagCommits
	}
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch recent builds once and print job health as JSON",
	Example: `  jobhealth snapshot
  jobhealth snapshot --branch release --limit 50 --failing-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(appConfig, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		snap, err := rt.refresher.Refresh(cmd.Context(), refreshOptionsOf(appConfig))
		if err != nil {
			return err
		}
		if snap == nil {
			return errors.New("no snapshot: set BUILDKITE_API_TOKEN to fetch builds")
		}
		return printSnapshot(filterSnapshot(snap, flagFailingOnly))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh job health on an interval and print each snapshot",
	Long: `Refreshes immediately and then every JOBHEALTH_REFRESH_INTERVAL (or
--interval) until interrupted. Each snapshot is printed as one JSON line.
Failed refreshes are logged and retried on the next tick.

Snapshots are published to the jobhealth.snapshots topic and printed as
they arrive on it. Without REDPANDA_BROKERS the topic lives in memory;
with it, snapshots go to Redpanda where "jobhealth follow" can read them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(appConfig, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		interval := appConfig.RefreshInterval
		if d, _ := cmd.Flags().GetDuration("interval"); d > 0 {
			interval = d
		}

		poller := &pipeline.Poller{
			Refresher: rt.refresher,
			Options:   refreshOptionsOf(appConfig),
			Interval:  interval,
			Logger:    log,
			OnSnapshot: func(snap *contracts.DashboardSnapshot) {
				if err := printSnapshotLine(filterSnapshot(snap, flagFailingOnly)); err != nil {
					log.Error("%v", err)
				}
			},
		}

		log.Info("Watching %s every %s", targetOf(appConfig), interval)
		if err := runWatch(cmd.Context(), rt, poller, log); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <number|url>",
	Short: "Print one build with the state of its script jobs",
	Example: `  jobhealth build 4821
  jobhealth build https://buildkite.com/vllm/ci/builds/4821`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(appConfig, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		build, err := lookupBuild(cmd.Context(), appConfig, rt.builds, args[0])
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, mcp.ToBuildInfo(build), true)
	},
}

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print snapshots published to Redpanda by a running watch",
	Long: `Subscribes to the jobhealth.snapshots topic on REDPANDA_BROKERS and
prints each snapshot of the configured target as one JSON line until
interrupted. Only snapshots published after start are shown.`,
	Example: `  REDPANDA_BROKERS=localhost:9092 jobhealth follow
  REDPANDA_BROKERS=localhost:9092 jobhealth follow --all-targets --summary`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !appConfig.AgenticMode() {
			return errors.New("follow needs REDPANDA_BROKERS")
		}
		b, err := broker.NewRedpandaBroker(appConfig.RedpandaBrokers, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redpanda: %w", err)
		}
		defer b.Close()

		var target *contracts.Target
		if !flagAllTargets {
			t := targetOf(appConfig)
			target = &t
		}
		group, _ := cmd.Flags().GetString("group")

		err = followSnapshots(cmd.Context(), b, group, target, log, func(snap *contracts.DashboardSnapshot) {
			if err := printSnapshotLine(filterSnapshot(snap, flagFailingOnly)); err != nil {
				log.Error("%v", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the job health tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(appConfig)
	},
}

// parseBuildArg accepts a build number in the configured pipeline or a
// Buildkite build URL.
func parseBuildArg(arg string, cfg *config.Config) (provider.BuildRef, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n <= 0 {
			return provider.BuildRef{}, fmt.Errorf("%w: build number must be positive", provider.ErrInvalidURL)
		}
		return provider.BuildRef{Provider: "buildkite", Org: cfg.Org, Pipeline: cfg.Pipeline, Number: n}, nil
	}
	return provider.ParseURL(arg)
}

func printSnapshot(snap *contracts.DashboardSnapshot) error {
	if flagSummary {
		writeSummary(os.Stdout, snap)
		return nil
	}
	return writeJSON(os.Stdout, snap, true)
}

func printSnapshotLine(snap *contracts.DashboardSnapshot) error {
	if flagSummary {
		writeSummary(os.Stdout, snap)
		return nil
	}
	return writeJSON(os.Stdout, snap, false)
}

// runMCP serves MCP on stdio. Logs go to stderr through logrus so they
// never interleave with protocol frames.
func runMCP(cfg *config.Config) error {
	structured, err := logger.NewStructuredLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	mcpLog := structured.WithField("component", "mcp").WithField("target", targetOf(cfg).String())

	rt, err := newRuntime(cfg, mcpLog)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := mcp.NewServer(rt.refresher, rt.builds, mcp.Defaults{
		Target:        targetOf(cfg),
		BuildLimit:    cfg.BuildLimit,
		TargetCommits: cfg.TargetCommits,
	}, mcpLog)

	mcpLog.Info("Serving MCP on stdio")
	return server.Run()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagOrg, "org", "", "Buildkite organization slug (env BUILDKITE_ORG)")
	pf.StringVar(&flagPipeline, "pipeline", "", "Buildkite pipeline slug (env BUILDKITE_PIPELINE)")
	pf.StringVar(&flagBranch, "branch", "", "Branch to inspect (env BUILDKITE_BRANCH)")
	pf.IntVar(&flagLimit, "limit", 0, "Max builds to fetch (env JOBHEALTH_BUILD_LIMIT)")
	pf.IntVar(&flagCommits, "commits", 0, "Stop after this many distinct commits, 0 to disable (env JOBHEALTH_TARGET_COMMITS)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{snapshotCmd, watchCmd, followCmd} {
		cmd.Flags().BoolVar(&flagFailingOnly, "failing-only", false, "Only print required jobs whose last run failed")
		cmd.Flags().BoolVar(&flagSummary, "summary", false, "Print a one-line-per-job summary instead of JSON")
	}
	watchCmd.Flags().Duration("interval", 0, "Refresh interval (env JOBHEALTH_REFRESH_INTERVAL)")
	followCmd.Flags().String("group", "jobhealth-follow", "Consumer group ID")
	followCmd.Flags().BoolVar(&flagAllTargets, "all-targets", false, "Print snapshots of every target, not only the configured one")

	rootCmd.AddCommand(snapshotCmd, watchCmd, followCmd, buildCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", provider.WrapError(err))
		stop()
		os.Exit(1)
	}
}
