package preflight

import (
	"context"

	"mediasolver/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBridge(ctx, cfg),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Render.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Render.OutputDir))
	}
	if cfg.Watch.Enabled {
		results = append(results, CheckDirectoryAccess("Watch folder", cfg.Watch.SourceDir))
	}
	if cfg.Host.Executable != "" {
		results = append(results, CheckExecutable("Host launcher", cfg.Host.Executable))
	}
	results = append(results, CheckDaemon(ctx, cfg))
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
