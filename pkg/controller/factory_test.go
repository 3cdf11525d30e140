package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ops-tools/redeploy/pkg/config"
)

// defaultConfig loads the built-in deployment defaults through an empty
// configuration file
func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redeploy.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestSignature_MatchesOwnLaunchArgs(t *testing.T) {
	cfg := defaultConfig(t)

	sig := Signature(cfg)

	// The signature must match the command line the factory itself launches
	cmdline := append([]string{cfg.VenvBinPath(cfg.Runtime.Runner)}, LaunchArgs(cfg)...)
	assert.True(t, sig.Matches(cmdline))

	// And the same invocation after a shebang re-execution
	withInterpreter := append([]string{cfg.VenvBinPath("python")}, cmdline...)
	assert.True(t, sig.Matches(withInterpreter))

	// But not an instance on a different port
	other := []string{cfg.VenvBinPath(cfg.Runtime.Runner), "run", cfg.App.EntryPoint, "--server.port", "9999"}
	assert.False(t, sig.Matches(other))
}

func TestLaunchArgs_FixedParameters(t *testing.T) {
	cfg := defaultConfig(t)

	args := LaunchArgs(cfg)
	assert.Equal(t, []string{"run", "app.py", "--server.port", "8501", "--server.address", "0.0.0.0"}, args)
}

func TestNewFromConfig(t *testing.T) {
	cfg := defaultConfig(t)

	ctrl, err := NewFromConfig(cfg, Options{}, &ControllerMockLogger{})
	require.NoError(t, err)

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Equal(t, 8501, ctrl.options.Port)
	assert.Equal(t, cfg.Restart.GracePeriod, ctrl.options.GracePeriod)
	assert.Equal(t, cfg.Restart.ForceKillTimeout, ctrl.options.ForceKillTimeout)
	assert.Equal(t, cfg.Restart.ConfirmTimeout, ctrl.options.ConfirmTimeout)
	assert.False(t, ctrl.options.SkipUpdate)
}

func TestNewFromConfig_UpdateDisabled(t *testing.T) {
	cfg := defaultConfig(t)

	disabled := false
	cfg.Update.Enabled = &disabled

	ctrl, err := NewFromConfig(cfg, Options{}, &ControllerMockLogger{})
	require.NoError(t, err)

	assert.True(t, ctrl.options.SkipUpdate)
}

func TestNewFromConfig_InvalidConfig(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.App.Port = -1

	_, err := NewFromConfig(cfg, Options{}, &ControllerMockLogger{})
	assert.Error(t, err)
}
