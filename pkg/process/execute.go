package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
)

// LaunchConfig describes a detached launch of the managed application
type LaunchConfig struct {
	ExecutablePath   string   `yaml:"executable_path"`
	Args             []string `yaml:"args,omitempty"`
	Environment      []string `yaml:"environment,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`

	// LogPath receives the combined stdout/stderr stream of the launched
	// process, opened in append mode so earlier runs are preserved
	LogPath string `yaml:"log_path"`
}

// DetachedLaunchCmd starts a new instance of the managed application and
// returns its PID. The instance runs in its own session and survives the
// launching process's exit.
type DetachedLaunchCmd func(ctx context.Context) (int, error)

// NewDetachedLaunchCmd creates a standard detached launch command with logging
func NewDetachedLaunchCmd(launch LaunchConfig, logger logging.Logger) DetachedLaunchCmd {
	return func(ctx context.Context) (int, error) {
		if ctx == nil {
			return 0, errors.NewValidationError("context cannot be nil", nil)
		}
		if err := ctx.Err(); err != nil {
			return 0, errors.NewValidationError("context is done", err)
		}

		if err := ValidateLaunchConfig(launch); err != nil {
			logger.Errorf("Launch configuration validation failed, error: %v", err)
			return 0, errors.NewValidationError("invalid launch configuration", err)
		}

		if err := ensureExecutable(launch.ExecutablePath); err != nil {
			return 0, errors.NewPermissionError("failed to ensure executable", err).WithContext("executable_path", launch.ExecutablePath)
		}

		workDir := launch.WorkingDirectory
		if workDir == "" {
			absPath, err := filepath.Abs(launch.ExecutablePath)
			if err != nil {
				return 0, errors.NewIOError("failed to get absolute path", err).WithContext("executable_path", launch.ExecutablePath)
			}
			workDir = filepath.Dir(absPath)
		}

		logFile, err := os.OpenFile(launch.LogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return 0, errors.NewIOError("failed to open log file", err).WithContext("log_path", launch.LogPath)
		}
		defer logFile.Close()

		env := os.Environ()
		env = append(env, launch.Environment...)

		logger.Debugf("Launching process, executable path: '%s', args: %v, working directory: '%s', log path: '%s'",
			launch.ExecutablePath, launch.Args, workDir, launch.LogPath)

		// Deliberately not CommandContext: the managed process must outlive
		// both the context and the launcher itself
		cmd := exec.Command(launch.ExecutablePath, launch.Args...)
		cmd.Dir = workDir
		cmd.Env = env
		cmd.Stdout = logFile
		cmd.Stderr = logFile

		// Platform-specific detachment is handled in execute_unix.go or
		// execute_windows.go
		setupDetachedAttributes(cmd)

		if err := cmd.Start(); err != nil {
			return 0, errors.NewLaunchError("failed to start the process", err).WithContext("executable_path", launch.ExecutablePath)
		}

		pid := cmd.Process.Pid

		// Drop the handle so no Wait is pending on the detached child
		if err := cmd.Process.Release(); err != nil {
			logger.Warnf("Failed to release process handle, pid: %d, error: %v", pid, err)
		}

		logger.Infof("Successfully launched detached process, pid: %d", pid)

		return pid, nil
	}
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewPermissionError("failed to make file executable", err).WithContext("path", path)
	}

	return nil
}
