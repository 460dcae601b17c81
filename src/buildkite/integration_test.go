//go:build integration

package buildkite

import (
	"context"
	"os"
	"testing"

	"jobhealth/src/ingest"
)

func TestBuildkiteIntegration(t *testing.T) {
	token := os.Getenv("BUILDKITE_API_TOKEN")
	if token == "" {
		t.Skip("BUILDKITE_API_TOKEN not set, skipping integration test")
	}

	org := os.Getenv("BUILDKITE_ORG")
	pipeline := os.Getenv("BUILDKITE_PIPELINE")
	if org == "" || pipeline == "" {
		t.Skip("BUILDKITE_ORG and BUILDKITE_PIPELINE not set, skipping integration test")
	}

	f := ingest.NewFetcher(NewProvider(token), 20, nil)
	builds, err := f.FetchRecentBuilds(context.Background(), ingest.FetchOptions{
		Org:                 org,
		Pipeline:            pipeline,
		Branch:              "main",
		BuildCountCap:       20,
		TargetUniqueCommits: 5,
	})
	if err != nil {
		t.Fatalf("FetchRecentBuilds failed: %v", err)
	}

	for i := 1; i < len(builds); i++ {
		if builds[i].CreatedAt.After(builds[i-1].CreatedAt) {
			t.Errorf("builds not sorted newest first at %d", i)
		}
	}

	t.Logf("Fetched %d builds from %s/%s", len(builds), org, pipeline)
}
