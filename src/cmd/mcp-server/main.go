// Package main provides a standalone MCP server for jobhealth, equivalent
// to `jobhealth mcp`. It exposes the job_health, job_history and get_build
// tools over stdio.
package main

import (
	"fmt"
	"os"

	"jobhealth/src/buildkite"
	"jobhealth/src/config"
	"jobhealth/src/contracts"
	"jobhealth/src/ingest"
	"jobhealth/src/logger"
	"jobhealth/src/mcp"
	"jobhealth/src/pipeline"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewStructuredLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	target := contracts.Target{Org: cfg.Org, Pipeline: cfg.Pipeline, Branch: cfg.Branch}
	if !cfg.HasCredential() {
		log.Info("BUILDKITE_API_TOKEN is not set; job_health will not fetch builds")
	}

	builds := buildkite.NewProvider(cfg.BuildkiteAPIToken,
		buildkite.WithBaseURL(cfg.BuildkiteAPIURL),
		buildkite.WithRateLimit(cfg.RequestsPerSecond),
	)
	refresher := pipeline.NewRefresher(pipeline.Config{
		Fetcher:       ingest.NewFetcher(builds, cfg.PageSize, log),
		Logger:        log,
		HasCredential: cfg.HasCredential(),
	})

	server := mcp.NewServer(refresher, builds, mcp.Defaults{
		Target:        target,
		BuildLimit:    cfg.BuildLimit,
		TargetCommits: cfg.TargetCommits,
	}, log.WithField("target", target.String()))

	if err := server.Run(); err != nil {
		log.Error("MCP server error: %v", err)
		os.Exit(1)
	}
}
