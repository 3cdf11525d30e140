//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupDetachedAttributes configures Unix-specific attributes for a detached
// launch: the child gets its own session so it has no controlling terminal
// and is not signalled when the launcher's session ends
func setupDetachedAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
