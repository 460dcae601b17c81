package buildkite

import (
	"context"

	"jobhealth/src/provider"
)

func init() {
	// Register the Buildkite provider factory
	provider.RegisterProvider("buildkite", func(token string) provider.Provider {
		return NewProvider(token)
	})
}

// Provider implements provider.Provider for Buildkite
type Provider struct {
	client *Client
}

// NewProvider creates a Buildkite provider with API token
func NewProvider(token string, opts ...Option) *Provider {
	return &Provider{
		client: NewClient(token, opts...),
	}
}

// Name returns "buildkite"
func (p *Provider) Name() string {
	return "buildkite"
}

// ListBuilds retrieves one page of builds using the Buildkite API
func (p *Provider) ListBuilds(ctx context.Context, query provider.BuildQuery) ([]provider.Build, error) {
	states := make([]string, 0, len(query.States))
	for _, s := range query.States {
		states = append(states, string(s))
	}

	bkBuilds, err := p.client.ListBuilds(ctx, query.Org, query.Pipeline, ListBuildsOptions{
		Branch:  query.Branch,
		Page:    query.Page,
		PerPage: query.PerPage,
		States:  states,
	})
	if err != nil {
		return nil, err
	}

	builds := make([]provider.Build, 0, len(bkBuilds))
	for _, bkBuild := range bkBuilds {
		builds = append(builds, convertBuild(bkBuild))
	}
	return builds, nil
}

// GetBuild retrieves a single build using the Buildkite API
func (p *Provider) GetBuild(ctx context.Context, ref provider.BuildRef) (*provider.Build, error) {
	bkBuild, err := p.client.GetBuild(ctx, ref.Org, ref.Pipeline, ref.Number)
	if err != nil {
		return nil, err
	}

	build := convertBuild(*bkBuild)
	return &build, nil
}

func convertBuild(bkBuild Build) provider.Build {
	build := provider.Build{
		ID:         bkBuild.ID,
		Number:     bkBuild.Number,
		State:      provider.BuildState(bkBuild.State),
		Commit:     bkBuild.Commit,
		Branch:     bkBuild.Branch,
		Message:    bkBuild.Message,
		CreatedAt:  bkBuild.CreatedAt,
		StartedAt:  bkBuild.StartedAt,
		FinishedAt: bkBuild.FinishedAt,
		WebURL:     bkBuild.WebURL,
		Jobs:       make([]provider.Job, 0, len(bkBuild.Jobs)),
	}

	for _, bkJob := range bkBuild.Jobs {
		build.Jobs = append(build.Jobs, provider.Job{
			ID:         bkJob.ID,
			Type:       provider.JobType(bkJob.Type),
			Name:       bkJob.Name,
			StepKey:    bkJob.StepKey,
			State:      provider.JobState(bkJob.State),
			SoftFailed: bkJob.SoftFailed,
			ExitStatus: bkJob.ExitStatus,
			Retried:    bkJob.Retried,
			WebURL:     bkJob.WebURL,
			CreatedAt:  bkJob.CreatedAt,
			StartedAt:  bkJob.StartedAt,
			FinishedAt: bkJob.FinishedAt,
		})
	}

	return build
}
