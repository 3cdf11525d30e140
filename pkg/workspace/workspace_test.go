//go:build !windows

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ops-tools/redeploy/pkg/errors"
)

// WorkspaceMockLogger is a simple mock implementation of Logger for testing
type WorkspaceMockLogger struct{}

func (m *WorkspaceMockLogger) Debugf(format string, args ...interface{}) {}
func (m *WorkspaceMockLogger) Infof(format string, args ...interface{})  {}
func (m *WorkspaceMockLogger) Warnf(format string, args ...interface{})  {}
func (m *WorkspaceMockLogger) Errorf(format string, args ...interface{}) {}

// writeStub creates an executable shell script standing in for an external
// collaborator (git, python, pip)
func writeStub(t *testing.T, path string, script string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
}

func TestSyncSource_Success(t *testing.T) {
	dir := t.TempDir()
	git := filepath.Join(dir, "bin", "git")
	writeStub(t, git, `echo "Already up to date."; exit 0`)

	sync := NewSyncSourceCmd(Config{Directory: dir, Git: git}, &WorkspaceMockLogger{})

	assert.NoError(t, sync(context.Background()))
}

func TestSyncSource_FailureIsUpdateError(t *testing.T) {
	dir := t.TempDir()
	git := filepath.Join(dir, "bin", "git")
	writeStub(t, git, `echo "fatal: not a git repository" 1>&2; exit 128`)

	sync := NewSyncSourceCmd(Config{Directory: dir, Git: git}, &WorkspaceMockLogger{})

	err := sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUpdateError(err))
}

func TestEnsureEnvironment_ExistingVenv(t *testing.T) {
	dir := t.TempDir()
	venv := filepath.Join(dir, ".venv")
	pip := filepath.Join(venv, "bin", "pip")
	writeStub(t, pip, `exit 0`)

	manifest := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("streamlit\n"), 0644))

	ensure := NewEnsureEnvironmentCmd(Config{
		Directory:     dir,
		VenvDirectory: ".venv",
		Requirements:  "requirements.txt",
	}, &WorkspaceMockLogger{})

	assert.NoError(t, ensure(context.Background()))
}

func TestEnsureEnvironment_PipFailureIsDependencyError(t *testing.T) {
	dir := t.TempDir()
	venv := filepath.Join(dir, ".venv")
	pip := filepath.Join(venv, "bin", "pip")
	writeStub(t, pip, `echo "No matching distribution" 1>&2; exit 1`)

	ensure := NewEnsureEnvironmentCmd(Config{
		Directory:     dir,
		VenvDirectory: ".venv",
		Requirements:  "requirements.txt",
	}, &WorkspaceMockLogger{})

	err := ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDependencyError(err))
}

func TestEnsureEnvironment_CreatesVenvWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	venv := filepath.Join(dir, ".venv")

	// The python stub simulates venv creation by building the bin directory
	// with a pip stub inside
	python := filepath.Join(dir, "stub-python")
	writeStub(t, python, `mkdir -p "`+filepath.Join(venv, "bin")+`"
cat > "`+filepath.Join(venv, "bin", "pip")+`" <<'EOF'
#!/bin/sh
exit 0
EOF
chmod +x "`+filepath.Join(venv, "bin", "pip")+`"`)

	ensure := NewEnsureEnvironmentCmd(Config{
		Directory:     dir,
		Python:        python,
		VenvDirectory: ".venv",
		Requirements:  "requirements.txt",
	}, &WorkspaceMockLogger{})

	require.NoError(t, ensure(context.Background()))
	assert.DirExists(t, filepath.Join(venv, "bin"))
}

func TestEnsureEnvironment_VenvCreationFailureIsDependencyError(t *testing.T) {
	dir := t.TempDir()
	python := filepath.Join(dir, "stub-python")
	writeStub(t, python, `echo "no module named venv" 1>&2; exit 1`)

	ensure := NewEnsureEnvironmentCmd(Config{
		Directory:     dir,
		Python:        python,
		VenvDirectory: ".venv",
		Requirements:  "requirements.txt",
	}, &WorkspaceMockLogger{})

	err := ensure(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDependencyError(err))
}

func TestVenvExecutable(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv/app/.venv", "bin", "pip"), VenvExecutable("/srv/app/.venv", "pip"))
}
