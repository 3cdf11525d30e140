package processfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProcessFileMockLogger is a simple mock implementation of Logger for testing
type ProcessFileMockLogger struct{}

func (m *ProcessFileMockLogger) Debugf(format string, args ...interface{}) {}
func (m *ProcessFileMockLogger) Infof(format string, args ...interface{})  {}
func (m *ProcessFileMockLogger) Warnf(format string, args ...interface{})  {}
func (m *ProcessFileMockLogger) Errorf(format string, args ...interface{}) {}

func TestNewManager_Defaults(t *testing.T) {
	manager := NewManager(Config{}, &ProcessFileMockLogger{})

	assert.Equal(t, DefaultAppName, manager.config.AppName)
	assert.Equal(t, ".", manager.config.Directory)
}

func TestPaths(t *testing.T) {
	manager := NewManager(Config{Directory: "/srv/app", AppName: "app"}, &ProcessFileMockLogger{})

	assert.Equal(t, filepath.Join("/srv/app", "app.pid"), manager.PIDFilePath())
	assert.Equal(t, filepath.Join("/srv/app", "app.port"), manager.PortFilePath())
}

func TestWriteAndReadPID(t *testing.T) {
	manager := NewManager(Config{Directory: t.TempDir(), AppName: "app"}, &ProcessFileMockLogger{})

	require.NoError(t, manager.WritePID(4242))

	pid, err := manager.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestWritePort(t *testing.T) {
	manager := NewManager(Config{Directory: t.TempDir(), AppName: "app"}, &ProcessFileMockLogger{})

	require.NoError(t, manager.WritePort(8501))

	data, err := os.ReadFile(manager.PortFilePath())
	require.NoError(t, err)
	assert.Equal(t, "8501\n", string(data))
}

func TestReadPID_Missing(t *testing.T) {
	manager := NewManager(Config{Directory: t.TempDir(), AppName: "app"}, &ProcessFileMockLogger{})

	_, err := manager.ReadPID()
	assert.Error(t, err)
}

func TestReadPID_InvalidContent(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(Config{Directory: dir, AppName: "app"}, &ProcessFileMockLogger{})

	require.NoError(t, os.WriteFile(manager.PIDFilePath(), []byte("not-a-pid\n"), 0644))
	_, err := manager.ReadPID()
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(manager.PIDFilePath(), []byte("-5\n"), 0644))
	_, err = manager.ReadPID()
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	manager := NewManager(Config{Directory: t.TempDir(), AppName: "app"}, &ProcessFileMockLogger{})

	require.NoError(t, manager.WritePID(4242))
	require.NoError(t, manager.WritePort(8501))

	require.NoError(t, manager.Remove())
	assert.NoFileExists(t, manager.PIDFilePath())
	assert.NoFileExists(t, manager.PortFilePath())

	// Removing again is not an error
	assert.NoError(t, manager.Remove())
}
