package process

import (
	"github.com/ops-tools/redeploy/pkg/errors"
)

// ValidateLaunchConfig validates a detached launch configuration
func ValidateLaunchConfig(launch LaunchConfig) error {
	if launch.ExecutablePath == "" {
		return errors.NewValidationError("executable path cannot be empty", nil)
	}

	if launch.LogPath == "" {
		return errors.NewValidationError("log path cannot be empty", nil)
	}

	return nil
}
