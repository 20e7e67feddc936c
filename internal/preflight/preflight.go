package preflight

import (
	"context"
	"fmt"

	"multivox/internal/config"
	"multivox/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional failures are reported but never block startup.
	Optional bool
}

// Options narrows RunAll.
type Options struct {
	// SkipNetwork omits checks that call the translation endpoint.
	SkipNetwork bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDependency(status))
	}

	if cfg.History.Enabled {
		results = append(results, CheckHistoryDB(ctx, cfg.History.DBPath))
	}

	if !opts.SkipNetwork {
		results = append(results, CheckTranslation(ctx, cfg))
	}

	return results
}

// Failed returns the failing checks that are not optional.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}

func fromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	if status.Available {
		result.Detail = status.Command
	} else {
		result.Detail = status.Detail
		if status.Description != "" {
			result.Detail = fmt.Sprintf("%s (%s)", status.Detail, status.Description)
		}
	}
	return result
}
