package preflight

import (
	"context"

	"github.com/chrimage/content-mill/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scope selects which checks RunAll performs.
type Scope struct {
	// Generation adds the chat and synthesis API checks.
	Generation bool
	// Assembly adds the ffmpeg/ffprobe checks.
	Assembly bool
}

// RunAll executes the checks in scope. Directory checks always run.
func RunAll(ctx context.Context, cfg *config.Config, scope Scope) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, cfg.Video.MinFreeGiB),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if scope.Assembly {
		for _, status := range CheckSystemDeps(cfg) {
			detail := status.Command
			if !status.Available {
				detail = status.Detail
			}
			results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
		}
	}

	if scope.Generation {
		results = append(results,
			CheckLLM(ctx, "Chat API", cfg.GetLLM()),
			CheckSynthesis(ctx, "Speech/Image API", cfg.GetSynth()),
		)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed {
			out = append(out, result)
		}
	}
	return out
}
