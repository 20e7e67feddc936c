package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"multivox/internal/services"
)

// Requirement defines an external binary Multivox shells out to.
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
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ResolveBinary looks up command on PATH (or as a direct path) and returns the
// absolute location. A missing binary is reported as a configuration error so
// callers fail fast at startup rather than on the first request.
func ResolveBinary(name, command string) (string, error) {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return "", services.Wrap(services.ErrConfiguration, "startup", "resolve "+name, "command not configured", nil)
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "startup", "resolve "+name, fmt.Sprintf("binary %q not found", cmd), err)
	}
	return resolved, nil
}

// MissingRequired returns the subset of statuses that are unavailable and not optional.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
