// ===== internal/runner/runner.go =====
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"delaykiller/pkg/models"
)

// DefaultTimeout bounds a single external command when the caller does not
// pick one.
const DefaultTimeout = 10 * time.Second

// Runner executes one external command per call. Implementations never
// return an error: any invocation failure is folded into the exit code and
// output text, and a timeout yields StatusTimeout with empty output. No
// retries happen here; callers decide whether to re-invoke.
type Runner interface {
	Run(timeout time.Duration, name string, args ...string) (int, string)
}

// ShellRunner runs commands on the host.
type ShellRunner struct{}

// New creates a host command runner
func New() *ShellRunner {
	return &ShellRunner{}
}

// Run executes name with args and returns the exit code plus combined text
// output. Standard output is preferred; standard error is substituted when
// stdout came back empty, which aids diagnosis without changing the
// contract.
func (r *ShellRunner) Run(timeout time.Duration, name string, args ...string) (int, string) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		// Partial output from a killed command is not trustworthy.
		return models.StatusTimeout, ""
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		out = strings.TrimSpace(stderr.String())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), out
		}
		// Could not be started at all (missing binary etc.)
		if out == "" {
			out = err.Error()
		}
		return models.StatusError, out
	}

	return models.StatusOK, out
}

// Netsh runs a netsh subcommand, accepting either the bare arguments or a
// leading "netsh" token for symmetry with hand-written command lines.
func Netsh(r Runner, args ...string) (int, string) {
	if len(args) > 0 && strings.EqualFold(args[0], "netsh") {
		args = args[1:]
	}
	return r.Run(8*time.Second, "netsh", args...)
}
