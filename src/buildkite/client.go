// Package buildkite provides a client for interacting with the Buildkite API.
package buildkite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"jobhealth/src/provider"
)

const (
	// APIBaseURL is the base URL for the Buildkite API.
	APIBaseURL = "https://api.buildkite.com/v2"

	// MaxPerPage is the largest page size the builds endpoint accepts.
	MaxPerPage = 100
)

// maxErrorBody bounds how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Client is a Buildkite API client.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit paces requests to at most rps per second.
// A non-positive rps leaves requests unpaced.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// Build represents a Buildkite build.
type Build struct {
	ID         string     `json:"id"`
	Number     int        `json:"number"`
	State      string     `json:"state"`
	Message    string     `json:"message"`
	Commit     string     `json:"commit"`
	Branch     string     `json:"branch"`
	WebURL     string     `json:"web_url"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Jobs       []Job      `json:"jobs"`
}

// Job represents a Buildkite job within a build.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	StepKey    string     `json:"step_key"`
	State      string     `json:"state"`
	SoftFailed bool       `json:"soft_failed"`
	ExitStatus *int       `json:"exit_status"`
	Retried    bool       `json:"retried"`
	WebURL     string     `json:"web_url"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// ListBuildsOptions filters the builds listing.
type ListBuildsOptions struct {
	Branch  string
	Page    int
	PerPage int
	States  []string
}

// NewClient creates a new Buildkite API client.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		apiToken: apiToken,
		baseURL:  APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListBuilds fetches one page of builds for a pipeline.
func (c *Client) ListBuilds(ctx context.Context, org, pipeline string, opts ListBuildsOptions) ([]Build, error) {
	params := url.Values{}
	if opts.Branch != "" {
		params.Set("branch", opts.Branch)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	params.Set("include_retried_jobs", "false")
	for _, state := range opts.States {
		params.Add("state[]", state)
	}

	endpoint := fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds?%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(pipeline), params.Encode())

	var builds []Build
	if err := c.getJSON(ctx, "list builds", endpoint, &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

// GetBuild fetches a build's metadata from the Buildkite API.
func (c *Client) GetBuild(ctx context.Context, org, pipeline string, number int) (*Build, error) {
	endpoint := fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds/%d",
		c.baseURL, url.PathEscape(org), url.PathEscape(pipeline), number)

	var build Build
	if err := c.getJSON(ctx, "get build", endpoint, &build); err != nil {
		return nil, err
	}
	return &build, nil
}

// getJSON performs an authorized GET and decodes the JSON body into out.
// All failures come back as *provider.FetchError.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &provider.FetchError{Kind: provider.KindNetworkFailure, Op: op, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &provider.FetchError{Kind: provider.KindUnclassified, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if c.apiToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.FetchError{Kind: provider.KindNetworkFailure, Op: op, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &provider.FetchError{
			Kind:       provider.KindForStatus(resp.StatusCode),
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &provider.FetchError{Kind: provider.KindUnclassified, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
