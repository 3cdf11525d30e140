package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ops-tools/redeploy/pkg/config"
	"github.com/ops-tools/redeploy/pkg/controller"
	"github.com/ops-tools/redeploy/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config     string `long:"config" description:"path to deployment configuration file"`
	LogLevel   string `long:"log-level" description:"controller log level (debug, info, warn, error)"`
	LogFile    string `long:"log-file" description:"controller log file (rotated); default is stderr only"`
	SkipUpdate bool   `long:"skip-update" description:"skip the source update step"`
	DryRun     bool   `long:"dry-run" description:"report what would be done, touch nothing"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel := cfg.Logging.Level
	if opts.LogLevel != "" {
		logLevel = opts.LogLevel
	}
	logFile := cfg.Logging.File
	if opts.LogFile != "" {
		logFile = opts.LogFile
	}

	rootLogger, closeLogger, err := logging.NewZapLogger(logging.ZapConfig{
		Level:    logLevel,
		FilePath: logFile,
	})
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLogger()

	logger := logging.NewLogger(
		logPrefix("redeploy"), logging.LogFuncs{
			Debugf: rootLogger.Debugf,
			Infof:  rootLogger.Infof,
			Warnf:  rootLogger.Warnf,
			Errorf: rootLogger.Errorf,
		})

	logger.Infof("opts: %+v", opts)
	logger.Infof("Deployment: entry point: %s, port: %d, bind address: %s, app log: %s",
		cfg.App.EntryPoint, cfg.App.Port, cfg.App.BindAddress, cfg.App.LogPath)

	options := controller.Options{
		SkipUpdate: opts.SkipUpdate,
		DryRun:     opts.DryRun,
	}

	ctrl, err := controller.NewFromConfig(cfg, options, logger)
	if err != nil {
		logger.Errorf("Failed to create restart controller: %v", err)
		os.Exit(1)
	}

	result, err := ctrl.Run(context.Background())
	if err != nil {
		logger.Errorf("Restart failed at state %s: %v", result.State, err)
		os.Exit(1)
	}

	if opts.DryRun {
		fmt.Printf("dry run: matching PIDs: %v\n", result.OldPIDs)
		return
	}

	if len(result.OldPIDs) > 0 {
		fmt.Printf("replaced PIDs %v with PID %d on port %d\n", result.OldPIDs, result.NewPID, cfg.App.Port)
	} else {
		fmt.Printf("started PID %d on port %d\n", result.NewPID, cfg.App.Port)
	}
	fmt.Printf("application log: %s\n", cfg.AppPath(cfg.App.LogPath))
}
