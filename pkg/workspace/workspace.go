package workspace

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
)

// Config describes the application workspace: where the source lives and
// how its isolated runtime environment is provisioned
type Config struct {
	Directory     string        `yaml:"directory"`
	Git           string        `yaml:"git,omitempty"`
	GitTimeout    time.Duration `yaml:"git_timeout,omitempty"`
	Python        string        `yaml:"python,omitempty"`
	VenvDirectory string        `yaml:"venv_directory,omitempty"`
	Requirements  string        `yaml:"requirements,omitempty"`
	SyncTimeout   time.Duration `yaml:"sync_timeout,omitempty"`
}

// SyncSourceCmd updates the application source to the latest revision.
// Any failure is fatal to the restart procedure: running stale or
// partially-updated code is worse than not restarting.
type SyncSourceCmd func(ctx context.Context) error

// EnsureEnvironmentCmd creates the isolated runtime environment if absent
// and synchronizes dependencies to the declared manifest. Failure is fatal:
// new code is never run against unresolved dependencies.
type EnsureEnvironmentCmd func(ctx context.Context) error

// NewSyncSourceCmd creates the source update command for the workspace
func NewSyncSourceCmd(config Config, logger logging.Logger) SyncSourceCmd {
	return func(ctx context.Context) error {
		git := config.Git
		if git == "" {
			git = "git"
		}

		logger.Infof("Updating source, directory: %s", config.Directory)

		// Fast-forward only: a diverged checkout needs operator attention,
		// not an automatic merge commit on the deployment host
		output, err := runCommand(ctx, config.Directory, config.GitTimeout, logger, git, "pull", "--ff-only")
		if err != nil {
			return errors.NewUpdateError("source update failed", err).WithContext("directory", config.Directory).WithContext("output", lastLine(output))
		}

		logger.Infof("Source update complete")
		return nil
	}
}

// NewEnsureEnvironmentCmd creates the dependency synchronization command for
// the workspace
func NewEnsureEnvironmentCmd(config Config, logger logging.Logger) EnsureEnvironmentCmd {
	return func(ctx context.Context) error {
		python := config.Python
		if python == "" {
			python = "python3"
		}

		venvDir := config.VenvDirectory
		if !filepath.IsAbs(venvDir) {
			venvDir = filepath.Join(config.Directory, venvDir)
		}

		if _, err := os.Stat(venvDir); os.IsNotExist(err) {
			logger.Infof("Isolated environment is absent, creating, directory: %s", venvDir)
			output, err := runCommand(ctx, config.Directory, config.SyncTimeout, logger, python, "-m", "venv", venvDir)
			if err != nil {
				return errors.NewDependencyError("failed to create isolated environment", err).WithContext("venv_directory", venvDir).WithContext("output", lastLine(output))
			}
		} else if err != nil {
			return errors.NewDependencyError("failed to inspect isolated environment", err).WithContext("venv_directory", venvDir)
		}

		pip := VenvExecutable(venvDir, "pip")

		logger.Infof("Synchronizing dependencies, manifest: %s", config.Requirements)

		output, err := runCommand(ctx, config.Directory, config.SyncTimeout, logger, pip, "install", "-r", config.Requirements)
		if err != nil {
			return errors.NewDependencyError("dependency synchronization failed", err).WithContext("requirements", config.Requirements).WithContext("output", lastLine(output))
		}

		logger.Infof("Dependencies are in sync")
		return nil
	}
}

// VenvExecutable returns the fully-qualified path of an executable inside
// the isolated environment
func VenvExecutable(venvDir string, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", name+".exe")
	}
	return filepath.Join(venvDir, "bin", name)
}

// runCommand executes an external collaborator, logging its combined output
// line by line at debug level, and returns the raw output for error context
func runCommand(ctx context.Context, dir string, timeout time.Duration, logger logging.Logger, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Debugf("Running command: %s %s, directory: %s", name, strings.Join(args, " "), dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		logger.Debugf("%s: %s", name, scanner.Text())
	}

	return output, err
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
