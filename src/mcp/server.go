package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"jobhealth/src/contracts"
	"jobhealth/src/logger"
	"jobhealth/src/pipeline"
	"jobhealth/src/provider"
	"jobhealth/src/store"
)

// Defaults fill in tool parameters the caller leaves out.
type Defaults struct {
	Target        contracts.Target
	BuildLimit    int
	TargetCommits int
}

// Server is the MCP server for jobhealth.
type Server struct {
	mcpServer *server.MCPServer
	refresher *pipeline.Refresher
	builds    provider.Provider
	defaults  Defaults
	log       logger.Logger
}

// NewServer creates an MCP server backed by refresher for job health and
// builds for single-build lookups.
func NewServer(refresher *pipeline.Refresher, builds provider.Provider, defaults Defaults, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	s := server.NewMCPServer(
		"jobhealth",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		refresher: refresher,
		builds:    builds,
		defaults:  defaults,
		log:       log,
	}
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	healthTool := mcp.NewTool("job_health",
		mcp.WithDescription("Fetch recent builds of the pipeline branch and return per-job health, most broken first. Failed required jobs lead, followed by running, passing, skipped and canceled jobs. Each job lists its recent states newest first."),
		mcp.WithString("branch",
			mcp.Description(fmt.Sprintf("Branch to inspect (default: %s)", s.defaults.Target.Branch)),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max builds to fetch (default: %d)", s.defaults.BuildLimit)),
		),
		mcp.WithNumber("commits",
			mcp.Description(fmt.Sprintf("Stop after this many distinct commits, 0 to disable (default: %d)", s.defaults.TargetCommits)),
		),
		mcp.WithBoolean("failing_only",
			mcp.Description("Only return required jobs whose last run failed"),
		),
		mcp.WithNumber("max_jobs",
			mcp.Description(fmt.Sprintf("Max jobs in the response (default: %d)", DefaultJobLimit)),
		),
	)

	historyTool := mcp.NewTool("job_history",
		mcp.WithDescription("Get the full per-build history of one job from the latest job_health snapshot. Use after job_health to drill into a job."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Job key from the job_health response"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch of the snapshot (default: the job_health default)"),
		),
	)

	buildTool := mcp.NewTool("get_build",
		mcp.WithDescription("Get one build with the state of each of its script jobs."),
		mcp.WithString("build",
			mcp.Required(),
			mcp.Description("Build number, or a URL like https://buildkite.com/org/pipeline/builds/123"),
		),
	)

	s.mcpServer.AddTool(healthTool, s.handleJobHealth)
	s.mcpServer.AddTool(historyTool, s.handleJobHistory)
	s.mcpServer.AddTool(buildTool, s.handleGetBuild)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) target(request mcp.CallToolRequest) contracts.Target {
	t := s.defaults.Target
	if branch := request.GetString("branch", ""); branch != "" {
		t.Branch = branch
	}
	return t
}

func (s *Server) handleJobHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", s.defaults.BuildLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	opts := pipeline.RefreshOptions{
		Target:              s.target(request),
		BuildCountCap:       limit,
		TargetUniqueCommits: request.GetInt("commits", s.defaults.TargetCommits),
	}

	s.log.Debug("[MCP] job_health for %s (limit %d, commits %d)", opts.Target, opts.BuildCountCap, opts.TargetUniqueCommits)

	snap, err := s.refresher.Refresh(ctx, opts)
	if err != nil {
		s.log.Error("[MCP] job_health for %s failed: %v", opts.Target, err)
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	if snap == nil {
		return mcp.NewToolResultError("BUILDKITE_API_TOKEN is not set; no builds were fetched"), nil
	}

	response := ToHealthResponse(snap,
		request.GetBool("failing_only", false),
		request.GetInt("max_jobs", DefaultJobLimit),
	)
	return jsonResult(response)
}

func (s *Server) handleJobHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	if key == "" {
		return mcp.NewToolResultError("key parameter is required"), nil
	}

	target := s.target(request)
	job, err := s.refresher.Store().Job(target, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%v; call job_health for %s first", err, target)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(job)
}

func (s *Server) handleGetBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg := request.GetString("build", "")
	if arg == "" {
		return mcp.NewToolResultError("build parameter is required"), nil
	}

	ref, err := s.buildRef(arg)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	if !s.refresher.HasCredential() {
		return mcp.NewToolResultError("BUILDKITE_API_TOKEN is not set; builds cannot be fetched"), nil
	}

	build, err := s.builds.GetBuild(ctx, ref)
	if err != nil {
		s.log.Error("[MCP] get_build %s/%s #%d failed: %v", ref.Org, ref.Pipeline, ref.Number, err)
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	return jsonResult(ToBuildInfo(build))
}

// buildRef resolves a build number against the default pipeline, or parses
// a full build URL.
func (s *Server) buildRef(arg string) (provider.BuildRef, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n <= 0 {
			return provider.BuildRef{}, fmt.Errorf("%w: build number must be positive", provider.ErrInvalidURL)
		}
		return provider.BuildRef{
			Provider: s.builds.Name(),
			Org:      s.defaults.Target.Org,
			Pipeline: s.defaults.Target.Pipeline,
			Number:   n,
		}, nil
	}
	return provider.ParseURL(arg)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
