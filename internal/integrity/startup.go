package integrity

import (
	"fmt"
	"strings"

	"github.com/carelink/carelink/internal/config"
)

// StartupDecision is the go/no-go verdict computed before the server socket
// is opened. It performs no I/O and is a pure transform of Status.
type StartupDecision struct {
	ShouldExit bool
	ExitCode   int
	Message    string
}

// DecideStartup evaluates the boot gate. Only strict mode with unmet
// required dependencies and no override flag aborts startup; demo mode logs
// the same blocking reasons and continues.
func DecideStartup(status Status, override bool) StartupDecision {
	if status.Mode != config.ModeStrict || status.Ready || override {
		return StartupDecision{}
	}

	var b strings.Builder
	b.WriteString("STARTUP BLOCKED: required dependencies are unavailable in strict integrity mode\n")
	b.WriteString("\n")
	for _, reason := range status.BlockingReasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}
	b.WriteString("\n")
	b.WriteString("To resolve, either:\n")
	b.WriteString("  1. fix the configuration or restore the dependency listed above\n")
	b.WriteString("  2. switch to demo mode (INTEGRITY_MODE=demo) to start degraded\n")
	b.WriteString("  3. set INTEGRITY_OVERRIDE=true to bypass this gate\n")

	return StartupDecision{
		ShouldExit: true,
		ExitCode:   1,
		Message:    b.String(),
	}
}
