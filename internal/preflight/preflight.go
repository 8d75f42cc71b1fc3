package preflight

import (
	"context"
	"os"

	"subburn/internal/config"
	"subburn/internal/deps"
	"subburn/internal/translate"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional results do not make the overall status fail.
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// client may be nil when it could not be constructed; the LLM check then
// reports the missing key.
func RunAll(ctx context.Context, cfg *config.Config, client translate.Completer) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}

	if wd, err := os.Getwd(); err == nil {
		results = append(results, CheckDirectoryAccess("Output directory", wd))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	results = append(results, CheckTranslationMemory(ctx, cfg))
	results = append(results, CheckLLM(ctx, cfg.GetLLM(), client))
	return results
}

// AllPassed reports whether every non-optional result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}

// CheckSystemDeps evaluates the external binaries needed to burn subtitles.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		deps.FFmpeg(cfg.FFmpegBinary()),
		deps.FFprobe(cfg.FFprobeBinary(), false),
	})
}
