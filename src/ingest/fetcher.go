// Package ingest pages through a build source to collect recent builds.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"jobhealth/src/logger"
	"jobhealth/src/provider"
)

const (
	// DefaultPageSize is the number of builds requested per page.
	DefaultPageSize = 50

	// MaxPageSize is the largest page the builds endpoint serves.
	MaxPageSize = 100
)

// ErrInvalidFetchOptions is returned before any request is made when the
// options cannot drive a fetch.
var ErrInvalidFetchOptions = errors.New("invalid fetch options")

// FetchOptions selects which builds to collect and when to stop.
type FetchOptions struct {
	Org      string
	Pipeline string
	Branch   string

	// BuildCountCap is the hard upper bound on returned builds. Must be positive.
	BuildCountCap int

	// TargetUniqueCommits stops paging once this many distinct commits have
	// been seen. Zero or negative disables the early stop.
	TargetUniqueCommits int
}

// Fetcher collects recent builds from a BuildSource.
// Each call owns its accumulator, so one Fetcher can serve concurrent calls.
type Fetcher struct {
	source   provider.BuildSource
	pageSize int
	log      logger.Logger
}

// NewFetcher creates a Fetcher. A pageSize outside 1..MaxPageSize falls
// back to DefaultPageSize.
func NewFetcher(source provider.BuildSource, pageSize int, log logger.Logger) *Fetcher {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Fetcher{
		source:   source,
		pageSize: pageSize,
		log:      log,
	}
}

// PageSize returns the page size requested from the source.
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// FetchRecentBuilds pages sequentially through the branch's builds, newest
// first, keeping only builds with at least one script job. After each page
// it stops when the page was empty, when enough distinct commits have been
// seen, when the page came back short, or when the cap has been reached.
//
// The result holds at most BuildCountCap builds sorted by descending
// creation time. A failed page aborts the whole call and no builds are
// returned.
func (f *Fetcher) FetchRecentBuilds(ctx context.Context, opts FetchOptions) ([]provider.Build, error) {
	if opts.BuildCountCap <= 0 {
		return nil, fmt.Errorf("%w: build count cap must be positive, got %d", ErrInvalidFetchOptions, opts.BuildCountCap)
	}

	var (
		builds      []provider.Build
		seenCommits = make(map[string]struct{})
		page        = 1
	)

	for {
		f.log.Debug("[Fetcher] Fetching page %d (have %d builds, %d unique commits)", page, len(builds), len(seenCommits))

		pageBuilds, err := f.source.ListBuilds(ctx, provider.BuildQuery{
			Org:      opts.Org,
			Pipeline: opts.Pipeline,
			Branch:   opts.Branch,
			Page:     page,
			PerPage:  f.pageSize,
			States:   provider.ListableBuildStates,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		if len(pageBuilds) == 0 {
			break
		}

		for _, build := range pageBuilds {
			// Builds without script jobs carry no signal and do not count
			// toward the commit target.
			if !build.HasScriptJobs() {
				continue
			}
			seenCommits[build.Commit] = struct{}{}
			builds = append(builds, build)
		}

		if opts.TargetUniqueCommits > 0 && len(seenCommits) >= opts.TargetUniqueCommits {
			f.log.Debug("[Fetcher] Found %d unique commits, stopping early", len(seenCommits))
			break
		}
		if len(pageBuilds) < f.pageSize {
			break
		}
		if len(builds) >= opts.BuildCountCap {
			break
		}

		page++
	}

	if len(builds) > opts.BuildCountCap {
		builds = builds[:opts.BuildCountCap]
	}
	sort.SliceStable(builds, func(i, j int) bool {
		return builds[i].CreatedAt.After(builds[j].CreatedAt)
	})

	f.log.Info("[Fetcher] Loaded %d builds with %d unique commits from %d pages", len(builds), len(seenCommits), page)
	return builds, nil
}
