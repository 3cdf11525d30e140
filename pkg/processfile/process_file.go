package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
)

// DefaultAppName is used when no application name is configured
const DefaultAppName = "redeploy"

// Config holds configuration for the process file artifacts (PID file and
// port file) written after a confirmed restart so operators and tooling can
// find the managed instance without scanning the process table
type Config struct {
	// Directory for the artifact files. If empty, the current working
	// directory is used.
	Directory string

	// Application name, used as the file basename
	AppName string
}

// Manager generates and maintains the process file artifacts
type Manager struct {
	config Config
	logger logging.Logger
}

// NewManager creates a new process file manager with the given configuration
func NewManager(config Config, logger logging.Logger) *Manager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}
	if config.Directory == "" {
		config.Directory = "."
	}

	return &Manager{
		config: config,
		logger: logger,
	}
}

// PIDFilePath returns the path of the PID file
func (m *Manager) PIDFilePath() string {
	return filepath.Join(m.config.Directory, m.config.AppName+".pid")
}

// PortFilePath returns the path of the port file
func (m *Manager) PortFilePath() string {
	return strings.TrimSuffix(m.PIDFilePath(), ".pid") + ".port"
}

// WritePID records the PID of the confirmed instance
func (m *Manager) WritePID(pid int) error {
	path := m.PIDFilePath()
	m.logger.Debugf("Writing PID file, pid: %d, path: %s", pid, path)

	content := fmt.Sprintf("%d\n", pid)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.NewIOError("failed to write PID file", err).WithContext("pid_file", path).WithContext("pid", pid)
	}

	return nil
}

// WritePort records the port the confirmed instance is bound to
func (m *Manager) WritePort(port int) error {
	path := m.PortFilePath()
	m.logger.Debugf("Writing port file, port: %d, path: %s", port, path)

	content := fmt.Sprintf("%d\n", port)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.NewIOError("failed to write port file", err).WithContext("port_file", path).WithContext("port", port)
	}

	return nil
}

// ReadPID reads the recorded PID of the last confirmed instance
func (m *Manager) ReadPID() (int, error) {
	path := m.PIDFilePath()

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", path)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID in PID file", err).WithContext("pid_file", path).WithContext("content", pidStr)
	}
	if pid <= 0 {
		return 0, errors.NewValidationError("PID must be positive", nil).WithContext("pid_file", path).WithContext("pid", pid)
	}

	return pid, nil
}

// Remove deletes the artifact files. Missing files are not an error.
func (m *Manager) Remove() error {
	collection := errors.NewErrorCollection()

	for _, path := range []string{m.PIDFilePath(), m.PortFilePath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			collection.Add(errors.NewIOError("failed to remove process file", err).WithContext("path", path))
		}
	}

	return collection.ToError()
}
