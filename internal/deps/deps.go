// Package deps reports whether the external binaries subburn shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subburn/internal/services"
)

// Requirement defines an external binary subburn relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch resolved, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = resolved
		}
		results = append(results, status)
	}
	return results
}

// Require checks requirements and returns an ErrExternalTool error naming
// every required binary that is missing. Optional requirements never fail.
func Require(requirements ...Requirement) error {
	var missing []string
	for _, status := range CheckBinaries(requirements) {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrExternalTool, "deps", "require", strings.Join(missing, ", "), nil)
}

// FFmpeg describes the transcoder used to burn subtitles.
func FFmpeg(command string) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     command,
		Description: "Required to burn subtitles into video",
	}
}

// FFprobe describes the inspector used to verify burned output.
func FFprobe(command string, required bool) Requirement {
	return Requirement{
		Name:        "FFprobe",
		Command:     command,
		Description: "Verifies burned video streams",
		Optional:    !required,
	}
}
