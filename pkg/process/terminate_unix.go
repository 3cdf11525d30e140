//go:build !windows

package process

import (
	"syscall"

	"github.com/ops-tools/redeploy/pkg/errors"
)

// Terminate sends SIGTERM to the process with the given PID. A process that
// is already gone is reported as a typed not_found error so callers can
// treat it as "already stopped" rather than a failure.
func Terminate(pid int) error {
	if pid <= 0 {
		return errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == nil {
		return nil
	}
	if err == syscall.ESRCH {
		return errors.NewNotFoundError("process already stopped", err).WithContext("pid", pid)
	}
	return errors.NewProcessError("failed to send termination signal", err).WithContext("pid", pid)
}

// ForceKill sends SIGKILL to the process with the given PID, with the same
// already-stopped mapping as Terminate
func ForceKill(pid int) error {
	if pid <= 0 {
		return errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	err := syscall.Kill(pid, syscall.SIGKILL)
	if err == nil {
		return nil
	}
	if err == syscall.ESRCH {
		return errors.NewNotFoundError("process already stopped", err).WithContext("pid", pid)
	}
	return errors.NewProcessError("failed to send kill signal", err).WithContext("pid", pid)
}
