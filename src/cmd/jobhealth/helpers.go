package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"jobhealth/src/broker"
	"jobhealth/src/buildkite"
	"jobhealth/src/config"
	"jobhealth/src/contracts"
	"jobhealth/src/ingest"
	"jobhealth/src/logger"
	"jobhealth/src/pipeline"
	"jobhealth/src/provider"
	"jobhealth/src/ranking"
)

// Consumer group of the local watch subscriber.
const watchGroup = "jobhealth-watch"

// runtime bundles everything a command needs to talk to Buildkite.
type runtime struct {
	refresher *pipeline.Refresher
	builds    *buildkite.Provider
	broker    broker.Broker
	// local is set when snapshots go through the in-memory broker.
	local bool
}

func (r *runtime) Close() error {
	if r.broker != nil {
		return r.broker.Close()
	}
	return nil
}

// newRuntime wires provider, fetcher, store and publisher from cfg.
// Snapshots are published to Redpanda when brokers are configured and to
// an in-memory broker otherwise.
func newRuntime(cfg *config.Config, log logger.Logger) (*runtime, error) {
	builds := buildkite.NewProvider(cfg.BuildkiteAPIToken,
		buildkite.WithBaseURL(cfg.BuildkiteAPIURL),
		buildkite.WithRateLimit(cfg.RequestsPerSecond),
	)

	rt := &runtime{builds: builds}
	if cfg.AgenticMode() {
		rp, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redpanda: %w", err)
		}
		rt.broker = rp
		log.Info("Publishing snapshots to %s on %s", contracts.TopicSnapshots, strings.Join(cfg.RedpandaBrokers, ","))
	} else {
		rt.broker = broker.NewInMemoryBroker()
		rt.local = true
	}

	rt.refresher = pipeline.NewRefresher(pipeline.Config{
		Fetcher:       ingest.NewFetcher(builds, cfg.PageSize, log),
		Publisher:     broker.NewSnapshotPublisher(rt.broker),
		Logger:        log,
		HasCredential: cfg.HasCredential(),
	})
	return rt, nil
}

// runWatch runs poller until ctx is done and hands every snapshot to emit.
// Local runs read snapshots back from the in-memory topic. With Redpanda
// the poller's own results are emitted and the topic is left to followers.
func runWatch(ctx context.Context, rt *runtime, poller *pipeline.Poller, log logger.Logger) error {
	emit := poller.OnSnapshot
	if !rt.local || emit == nil {
		return poller.Run(ctx)
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, err := broker.SubscribeSnapshots(subCtx, rt.broker, watchGroup, log)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snaps {
			emit(snap)
		}
	}()

	poller.OnSnapshot = nil
	err = poller.Run(ctx)
	cancel()
	<-done
	return err
}

// followSnapshots prints snapshots published by other processes until ctx
// is done. A nil target accepts every target on the topic.
func followSnapshots(ctx context.Context, b broker.Broker, groupID string, target *contracts.Target, log logger.Logger, emit func(*contracts.DashboardSnapshot)) error {
	snaps, err := broker.SubscribeSnapshots(ctx, b, groupID, log)
	if err != nil {
		return err
	}
	for snap := range snaps {
		if target != nil && snap.Target != *target {
			continue
		}
		emit(snap)
	}
	return ctx.Err()
}

// lookupBuild resolves arg and fetches the build. Without a token no
// request is made.
func lookupBuild(ctx context.Context, cfg *config.Config, builds provider.Provider, arg string) (*provider.Build, error) {
	ref, err := parseBuildArg(arg, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.HasCredential() {
		return nil, errors.New("no build fetched: set BUILDKITE_API_TOKEN to look up builds")
	}
	return builds.GetBuild(ctx, ref)
}

// newLogger returns a console logger for text output and a logrus JSON
// logger when JOBHEALTH_LOG_FORMAT=json. Both write to stderr.
func newLogger(cfg *config.Config, verbose bool) (logger.Logger, error) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		return logger.NewStructuredLogger(os.Stderr, level, "json")
	}
	if verbose {
		return logger.NewConsoleLogger(true), nil
	}
	console, err := logger.NewLeveledConsoleLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return console, nil
}

func targetOf(cfg *config.Config) contracts.Target {
	return contracts.Target{Org: cfg.Org, Pipeline: cfg.Pipeline, Branch: cfg.Branch}
}

func refreshOptionsOf(cfg *config.Config) pipeline.RefreshOptions {
	return pipeline.RefreshOptions{
		Target:              targetOf(cfg),
		BuildCountCap:       cfg.BuildLimit,
		TargetUniqueCommits: cfg.TargetCommits,
	}
}

// filterSnapshot returns a copy of snap with only failing required jobs.
// The summary still describes the full snapshot.
func filterSnapshot(snap *contracts.DashboardSnapshot, failingOnly bool) *contracts.DashboardSnapshot {
	if !failingOnly {
		return snap
	}
	filtered := *snap
	filtered.Jobs = ranking.Filter(snap.Jobs, ranking.FailingRequired)
	return &filtered
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v interface{}, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// writeSummary prints one line per job: state, frequency, name.
func writeSummary(w io.Writer, snap *contracts.DashboardSnapshot) {
	fmt.Fprintf(w, "%s  generation %d  %d builds  %d failing, %d optional failing, %d running, %d passing\n",
		snap.Target, snap.Generation, snap.TotalBuilds,
		snap.Summary.FailingRequired, snap.Summary.FailingOptional, snap.Summary.Running, snap.Summary.Passing)
	for _, job := range snap.Jobs {
		marker := ""
		if job.Optional {
			marker = " (optional)"
		}
		fmt.Fprintf(w, "  %-9s %4dx  %s%s\n", job.LastState, job.Frequency, job.Name, marker)
	}
}
