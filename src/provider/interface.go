package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown CI provider")
)

// BuildSource lists builds from a CI provider.
type BuildSource interface {
	// ListBuilds returns one page of builds matching the query.
	// Failures are returned as *FetchError.
	ListBuilds(ctx context.Context, query BuildQuery) ([]Build, error)
}

// Provider defines the interface for CI/CD platform integrations
type Provider interface {
	BuildSource

	// Name returns the provider name (e.g., "buildkite")
	Name() string

	// GetBuild retrieves a single build with its jobs
	GetBuild(ctx context.Context, ref BuildRef) (*Build, error)
}

// Factory creates a provider from an API token.
type Factory func(token string) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider makes a provider available by name.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewProvider creates the named provider.
func NewProvider(name, token string) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, name)
	}
	return factory(token), nil
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var buildkiteURLPattern = regexp.MustCompile(`^https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)

// ParseURL parses a build reference from a build web URL
func ParseURL(url string) (BuildRef, error) {
	matches := buildkiteURLPattern.FindStringSubmatch(url)
	if matches == nil {
		return BuildRef{}, fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}

	number, err := strconv.Atoi(matches[3])
	if err != nil {
		return BuildRef{}, fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}

	return BuildRef{
		Provider: "buildkite",
		Org:      matches[1],
		Pipeline: matches[2],
		Number:   number,
	}, nil
}
