package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ops-tools/redeploy/pkg/errors"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up relative to the application directory when
// no --config flag is given. A missing default file is not an error: the
// built-in defaults describe the standard deployment.
const DefaultConfigFile = "redeploy.yaml"

// Config is the top-level deployment configuration file structure
type Config struct {
	App     AppConfig     `yaml:"app"`
	Update  UpdateConfig  `yaml:"update"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Restart RestartConfig `yaml:"restart"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// AppConfig describes the managed application: what to run, where it binds,
// and where its output goes
type AppConfig struct {
	Directory   string `yaml:"directory,omitempty"`
	EntryPoint  string `yaml:"entry_point"`
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address,omitempty"`
	LogPath     string `yaml:"log_path,omitempty"`
}

// UpdateConfig controls the source update step
type UpdateConfig struct {
	Enabled *bool         `yaml:"enabled,omitempty"` // Pointer to distinguish unset from false
	Git     string        `yaml:"git,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// RuntimeConfig controls the isolated environment and dependency step
type RuntimeConfig struct {
	Python        string        `yaml:"python,omitempty"`
	VenvDirectory string        `yaml:"venv_directory,omitempty"`
	Requirements  string        `yaml:"requirements,omitempty"`
	Runner        string        `yaml:"runner,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
}

// RestartConfig controls termination and confirmation timing
type RestartConfig struct {
	GracePeriod      time.Duration `yaml:"grace_period,omitempty"`
	ForceKillTimeout time.Duration `yaml:"force_kill_timeout,omitempty"`
	ConfirmTimeout   time.Duration `yaml:"confirm_timeout,omitempty"`
}

// LoggingConfig controls the controller's own log output (not the managed
// application's log, which is AppConfig.LogPath)
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Load loads configuration from a YAML file and applies defaults. An empty
// filename, or an absent file at the default path, yields the built-in
// default configuration.
func Load(filename string) (*Config, error) {
	var config Config

	if filename == "" {
		filename = DefaultConfigFile
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			setDefaults(&config)
			return &config, nil
		}
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setDefaults(&config)

	return &config, nil
}

// setDefaults applies the standard deployment constants to unset fields
func setDefaults(config *Config) {
	if config.App.Directory == "" {
		config.App.Directory = "."
	}
	if config.App.EntryPoint == "" {
		config.App.EntryPoint = "app.py"
	}
	if config.App.Port == 0 {
		config.App.Port = 8501
	}
	if config.App.BindAddress == "" {
		config.App.BindAddress = "0.0.0.0"
	}
	if config.App.LogPath == "" {
		config.App.LogPath = "app.log"
	}

	if config.Update.Enabled == nil {
		enabled := true
		config.Update.Enabled = &enabled
	}
	if config.Update.Git == "" {
		config.Update.Git = "git"
	}
	if config.Update.Timeout == 0 {
		config.Update.Timeout = 2 * time.Minute
	}

	if config.Runtime.Python == "" {
		config.Runtime.Python = "python3"
	}
	if config.Runtime.VenvDirectory == "" {
		config.Runtime.VenvDirectory = ".venv"
	}
	if config.Runtime.Requirements == "" {
		config.Runtime.Requirements = "requirements.txt"
	}
	if config.Runtime.Runner == "" {
		config.Runtime.Runner = "streamlit"
	}
	if config.Runtime.Timeout == 0 {
		config.Runtime.Timeout = 10 * time.Minute
	}

	if config.Restart.GracePeriod == 0 {
		config.Restart.GracePeriod = 3 * time.Second
	}
	if config.Restart.ForceKillTimeout == 0 {
		config.Restart.ForceKillTimeout = 10 * time.Second
	}
	if config.Restart.ConfirmTimeout == 0 {
		config.Restart.ConfirmTimeout = 15 * time.Second
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// Validate validates the entire configuration structure
func Validate(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if config.App.EntryPoint == "" {
		return errors.NewValidationError("application entry point cannot be empty", nil)
	}

	if err := ValidatePort(config.App.Port); err != nil {
		return err
	}

	if config.App.LogPath == "" {
		return errors.NewValidationError("application log path cannot be empty", nil)
	}

	if err := validateTimeout(config.Update.Timeout, "update"); err != nil {
		return err
	}
	if err := validateTimeout(config.Runtime.Timeout, "dependency"); err != nil {
		return err
	}
	if err := validateTimeout(config.Restart.ForceKillTimeout, "force kill"); err != nil {
		return err
	}
	if err := validateTimeout(config.Restart.ConfirmTimeout, "confirm"); err != nil {
		return err
	}
	if config.Restart.GracePeriod < 0 {
		return errors.NewValidationError("grace period cannot be negative", nil)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	valid := false
	for _, level := range validLogLevels {
		if config.Logging.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		return errors.NewValidationError("invalid log level: "+config.Logging.Level, nil).WithContext("valid_levels", "debug, info, warn, error")
	}

	return nil
}

// ValidatePort validates a port number
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil).WithContext("port", port)
	}
	return nil
}

func validateTimeout(timeout time.Duration, name string) error {
	if timeout <= 0 {
		return errors.NewValidationError(name+" timeout must be positive", nil)
	}
	return nil
}

// AppPath resolves a path from the configuration against the application
// directory. Absolute paths pass through unchanged.
func (c *Config) AppPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.App.Directory, path)
}

// VenvBinPath returns the fully-qualified path of an executable inside the
// isolated environment. The explicit path is used for the detached launch
// instead of relying on shell activation state, which does not propagate to
// a background process.
func (c *Config) VenvBinPath(name string) string {
	return filepath.Join(c.AppPath(c.Runtime.VenvDirectory), "bin", name)
}
