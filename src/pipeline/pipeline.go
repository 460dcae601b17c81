// Package pipeline turns fetched builds into ranked dashboard snapshots.
// It is shared by the CLI and the MCP server.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	"jobhealth/src/contracts"
	"jobhealth/src/health"
	"jobhealth/src/ingest"
	"jobhealth/src/logger"
	"jobhealth/src/provider"
	"jobhealth/src/ranking"
	"jobhealth/src/store"
)

// BuildFetcher collects the builds a snapshot is computed from.
type BuildFetcher interface {
	FetchRecentBuilds(ctx context.Context, opts ingest.FetchOptions) ([]provider.Build, error)
}

// Publisher forwards accepted snapshots downstream.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *contracts.DashboardSnapshot) error
}

// BuildSnapshot aggregates builds into ranked job health.
func BuildSnapshot(target contracts.Target, generation uint64, builds []provider.Build, generatedAt time.Time) contracts.DashboardSnapshot {
	jobs := ranking.Rank(health.Aggregate(builds))
	return contracts.DashboardSnapshot{
		Target:      target,
		Generation:  generation,
		GeneratedAt: generatedAt,
		Jobs:        jobs,
		TotalBuilds: len(builds),
		Summary:     health.Summarize(jobs),
	}
}

// RefreshOptions selects the target and bounds of one refresh.
type RefreshOptions struct {
	Target              contracts.Target
	BuildCountCap       int
	TargetUniqueCommits int
}

// Config wires a Refresher. Store, Publisher, Clock and Logger are optional.
type Config struct {
	Fetcher       BuildFetcher
	Store         *store.SnapshotStore
	Publisher     Publisher
	Clock         clock.Clock
	Logger        logger.Logger
	HasCredential bool
}

// Refresher runs fetch, aggregate and rank, then stores and publishes the
// resulting snapshot. Every call gets a new generation, so when refreshes
// overlap the store keeps the one that started last.
type Refresher struct {
	fetcher       BuildFetcher
	store         *store.SnapshotStore
	publisher     Publisher
	clock         clock.Clock
	log           logger.Logger
	hasCredential bool
	generation    atomic.Uint64
}

// NewRefresher creates a Refresher from cfg.
func NewRefresher(cfg Config) *Refresher {
	r := &Refresher{
		fetcher:       cfg.Fetcher,
		store:         cfg.Store,
		publisher:     cfg.Publisher,
		clock:         cfg.Clock,
		log:           cfg.Logger,
		hasCredential: cfg.HasCredential,
	}
	if r.store == nil {
		r.store = store.NewSnapshotStore()
	}
	if r.clock == nil {
		r.clock = clock.NewClock()
	}
	if r.log == nil {
		r.log = logger.NewSilentLogger()
	}
	return r
}

// HasCredential reports whether refreshes will fetch builds.
func (r *Refresher) HasCredential() bool {
	return r.hasCredential
}

// Store returns the snapshot store the Refresher writes to.
func (r *Refresher) Store() *store.SnapshotStore {
	return r.store
}

// Refresh computes a new snapshot for opts.Target. Without a credential no
// fetch is attempted and (nil, nil) is returned. Publish failures are logged
// and do not fail the refresh.
func (r *Refresher) Refresh(ctx context.Context, opts RefreshOptions) (*contracts.DashboardSnapshot, error) {
	if !r.hasCredential {
		r.log.Info("[Refresher] No Buildkite API token configured, skipping refresh of %s", opts.Target)
		return nil, nil
	}

	gen := r.generation.Add(1)
	r.log.Debug("[Refresher] Refresh %d of %s started", gen, opts.Target)

	builds, err := r.fetcher.FetchRecentBuilds(ctx, ingest.FetchOptions{
		Org:                 opts.Target.Org,
		Pipeline:            opts.Target.Pipeline,
		Branch:              opts.Target.Branch,
		BuildCountCap:       opts.BuildCountCap,
		TargetUniqueCommits: opts.TargetUniqueCommits,
	})
	if err != nil {
		return nil, err
	}

	snap := BuildSnapshot(opts.Target, gen, builds, r.clock.Now())

	if !r.store.Put(&snap) {
		r.log.Debug("[Refresher] Refresh %d of %s superseded by a newer one", gen, opts.Target)
		return &snap, nil
	}

	if r.publisher != nil {
		if err := r.publisher.PublishSnapshot(ctx, &snap); err != nil {
			r.log.Error("[Refresher] Failed to publish snapshot %d: %v", gen, err)
		}
	}

	r.log.Info("[Refresher] Snapshot %d of %s: %d jobs from %d builds, %d failing",
		gen, opts.Target, len(snap.Jobs), snap.TotalBuilds, snap.Summary.FailingRequired)
	return &snap, nil
}
