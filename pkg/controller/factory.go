package controller

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ops-tools/redeploy/pkg/config"
	"github.com/ops-tools/redeploy/pkg/logging"
	"github.com/ops-tools/redeploy/pkg/portprobe"
	"github.com/ops-tools/redeploy/pkg/process"
	"github.com/ops-tools/redeploy/pkg/processfile"
	"github.com/ops-tools/redeploy/pkg/processstate"
	"github.com/ops-tools/redeploy/pkg/procscan"
	"github.com/ops-tools/redeploy/pkg/workspace"
)

// NewFromConfig wires a restart controller from the deployment
// configuration, binding each step to its real collaborator
func NewFromConfig(cfg *config.Config, options Options, logger logging.Logger) (*Controller, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	options.Port = cfg.App.Port
	if options.GracePeriod == 0 {
		options.GracePeriod = cfg.Restart.GracePeriod
	}
	if options.ForceKillTimeout == 0 {
		options.ForceKillTimeout = cfg.Restart.ForceKillTimeout
	}
	if options.ConfirmTimeout == 0 {
		options.ConfirmTimeout = cfg.Restart.ConfirmTimeout
	}
	if cfg.Update.Enabled != nil && !*cfg.Update.Enabled {
		options.SkipUpdate = true
	}

	signature := Signature(cfg)

	workspaceConfig := workspace.Config{
		Directory:     cfg.App.Directory,
		Git:           cfg.Update.Git,
		GitTimeout:    cfg.Update.Timeout,
		Python:        cfg.Runtime.Python,
		VenvDirectory: cfg.Runtime.VenvDirectory,
		Requirements:  cfg.Runtime.Requirements,
		SyncTimeout:   cfg.Runtime.Timeout,
	}

	launchConfig := process.LaunchConfig{
		ExecutablePath:   cfg.VenvBinPath(cfg.Runtime.Runner),
		Args:             LaunchArgs(cfg),
		WorkingDirectory: cfg.App.Directory,
		LogPath:          cfg.AppPath(cfg.App.LogPath),
	}

	dialAddress := portprobe.DialAddress(cfg.App.BindAddress, cfg.App.Port)

	appName := strings.TrimSuffix(filepath.Base(cfg.App.EntryPoint), filepath.Ext(cfg.App.EntryPoint))
	fileManager := processfile.NewManager(processfile.Config{
		Directory: cfg.App.Directory,
		AppName:   appName,
	}, logger)

	steps := Steps{
		SyncSource:        workspace.NewSyncSourceCmd(workspaceConfig, logger),
		EnsureEnvironment: workspace.NewEnsureEnvironmentCmd(workspaceConfig, logger),
		FindProcesses: func() ([]procscan.ProcessInfo, error) {
			return procscan.FindBySignature(signature, logger)
		},
		Terminate: process.Terminate,
		ForceKill: process.ForceKill,
		IsRunning: processstate.IsProcessRunning,
		Launch:    process.NewDetachedLaunchCmd(launchConfig, logger),
		WaitForListener: func(ctx context.Context, timeout time.Duration) error {
			return portprobe.WaitForListener(ctx, dialAddress, timeout, logger)
		},
		WaitForRelease: func(ctx context.Context, timeout time.Duration) error {
			return portprobe.WaitForRelease(ctx, dialAddress, timeout, logger)
		},
		RecordInstance: func(pid int) error {
			if err := fileManager.WritePID(pid); err != nil {
				return err
			}
			return fileManager.WritePort(cfg.App.Port)
		},
	}

	return New(options, steps, logger)
}

// LaunchArgs builds the fixed startup argument list for the managed
// application: entry point, listening port, wildcard bind address
func LaunchArgs(cfg *config.Config) []string {
	return []string{
		"run", cfg.App.EntryPoint,
		"--server.port", strconv.Itoa(cfg.App.Port),
		"--server.address", cfg.App.BindAddress,
	}
}

// Signature builds the command-line signature that identifies a live
// instance of the managed application. It deliberately omits the runner's
// absolute path: a shebang re-execution prepends the interpreter, but the
// runner name, entry point, and port always appear in order.
func Signature(cfg *config.Config) procscan.Signature {
	return procscan.Signature{
		Pattern: fmt.Sprintf("%s run %s --server.port %d", cfg.Runtime.Runner, cfg.App.EntryPoint, cfg.App.Port),
	}
}
