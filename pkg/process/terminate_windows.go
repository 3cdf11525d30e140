//go:build windows

package process

import (
	"os"

	"github.com/ops-tools/redeploy/pkg/errors"
)

// Terminate has no graceful signal equivalent on Windows; callers fall
// through to ForceKill after the grace period
func Terminate(pid int) error {
	return errors.NewInternalError("graceful termination is not supported on windows", nil).WithContext("pid", pid)
}

// ForceKill terminates the process with the given PID
func ForceKill(pid int) error {
	if pid <= 0 {
		return errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return errors.NewNotFoundError("process already stopped", err).WithContext("pid", pid)
	}

	if err := proc.Kill(); err != nil {
		return errors.NewProcessError("failed to kill process", err).WithContext("pid", pid)
	}
	return nil
}
