package procscan

import (
	"os"
	"strings"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
)

// Signature identifies a managed process among all live processes by a
// substring of its full command-line invocation, the same contract as
// `pgrep -f`. A process started as `/srv/app/.venv/bin/streamlit run app.py
// --server.port 8501` matches the pattern "streamlit run app.py".
type Signature struct {
	Pattern string `yaml:"pattern"`
}

// ProcessInfo describes a live process that matched a signature
type ProcessInfo struct {
	PID     int
	Cmdline []string
}

// Matches reports whether the given command line matches the signature
func (s Signature) Matches(cmdline []string) bool {
	if s.Pattern == "" || len(cmdline) == 0 {
		return false
	}
	return strings.Contains(strings.Join(cmdline, " "), s.Pattern)
}

// ValidateSignature validates a process signature
func ValidateSignature(sig Signature) error {
	if strings.TrimSpace(sig.Pattern) == "" {
		return errors.NewValidationError("signature pattern cannot be empty", nil)
	}
	return nil
}

// FindBySignature scans the live process table and returns every process
// whose command line matches the signature. The scanner's own process is
// excluded. Zero matches is a valid outcome, reported as an empty slice
// with a nil error, never as a failure.
func FindBySignature(sig Signature, logger logging.Logger) ([]ProcessInfo, error) {
	if err := ValidateSignature(sig); err != nil {
		return nil, err
	}

	processes, err := listProcesses()
	if err != nil {
		return nil, errors.NewDiscoveryError("failed to read process table", err)
	}

	self := os.Getpid()

	var matches []ProcessInfo
	for _, p := range processes {
		if p.PID == self {
			continue
		}
		if sig.Matches(p.Cmdline) {
			logger.Debugf("Signature match, pid: %d, cmdline: %q", p.PID, strings.Join(p.Cmdline, " "))
			matches = append(matches, p)
		}
	}

	logger.Infof("Process discovery complete, pattern: %q, matches: %d", sig.Pattern, len(matches))

	return matches, nil
}
