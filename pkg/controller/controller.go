package controller

import (
	"context"
	"time"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
	"github.com/ops-tools/redeploy/pkg/process"
	"github.com/ops-tools/redeploy/pkg/procscan"
	"github.com/ops-tools/redeploy/pkg/workspace"
)

// Options holds the fixed parameters of a restart invocation
type Options struct {
	// Port the managed application binds to
	Port int

	// GracePeriod is how long the old instance gets to release the port
	// after the termination signal
	GracePeriod time.Duration

	// ForceKillTimeout bounds the wait after SIGKILL escalation
	ForceKillTimeout time.Duration

	// ConfirmTimeout bounds the wait for the new instance's listener
	ConfirmTimeout time.Duration

	// SkipUpdate skips the source update step
	SkipUpdate bool

	// DryRun stops after discovery and reports what would be done
	DryRun bool
}

// Steps are the collaborators of the restart procedure. Each is a closure
// over its configuration so the state machine can be exercised in tests
// without touching git, pip, or the real process table.
type Steps struct {
	SyncSource        workspace.SyncSourceCmd
	EnsureEnvironment workspace.EnsureEnvironmentCmd
	FindProcesses     func() ([]procscan.ProcessInfo, error)
	Terminate         func(pid int) error
	ForceKill         func(pid int) error
	IsRunning         func(pid int) (bool, error)
	Launch            process.DetachedLaunchCmd
	WaitForListener   func(ctx context.Context, timeout time.Duration) error
	WaitForRelease    func(ctx context.Context, timeout time.Duration) error

	// RecordInstance persists the confirmed PID for operator tooling.
	// Optional; failures are logged, never fatal.
	RecordInstance func(pid int) error
}

// Result reports the outcome of a restart invocation to the operator
type Result struct {
	State   State
	OldPIDs []int
	NewPID  int
}

// Controller converges the host to exactly one running instance of the
// managed application on the latest source. One invocation, one pass
// through the state machine; the controller holds no state between runs —
// everything it needs is derived from the process table and the port.
type Controller struct {
	options Options
	steps   Steps
	state   State
	logger  logging.Logger
}

// New creates a restart controller
func New(options Options, steps Steps, logger logging.Logger) (*Controller, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	return &Controller{
		options: options,
		steps:   steps,
		state:   StateIdle,
		logger:  logger,
	}, nil
}

func validateSteps(steps Steps) error {
	if steps.SyncSource == nil {
		return errors.NewValidationError("sync source step is required", nil)
	}
	if steps.EnsureEnvironment == nil {
		return errors.NewValidationError("ensure environment step is required", nil)
	}
	if steps.FindProcesses == nil {
		return errors.NewValidationError("find processes step is required", nil)
	}
	if steps.Terminate == nil {
		return errors.NewValidationError("terminate step is required", nil)
	}
	if steps.ForceKill == nil {
		return errors.NewValidationError("force kill step is required", nil)
	}
	if steps.IsRunning == nil {
		return errors.NewValidationError("is running step is required", nil)
	}
	if steps.Launch == nil {
		return errors.NewValidationError("launch step is required", nil)
	}
	if steps.WaitForListener == nil {
		return errors.NewValidationError("wait for listener step is required", nil)
	}
	if steps.WaitForRelease == nil {
		return errors.NewValidationError("wait for release step is required", nil)
	}
	return nil
}

// State returns the current state of the invocation
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) setState(to State) {
	if !CanTransition(c.state, to) {
		c.logger.Warnf("Unexpected state transition: %s -> %s", c.state, to)
	} else {
		c.logger.Infof("State transition: %s -> %s", c.state, to)
	}
	c.state = to
}

// Run executes the restart procedure once, strictly sequentially. It
// returns the terminal result; on failure the returned error identifies
// which step failed.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if ctx == nil {
		return Result{State: StateFailed}, errors.NewValidationError("context cannot be nil", nil)
	}

	if c.options.DryRun {
		return c.runDry()
	}

	var result Result

	fail := func(err error) (Result, error) {
		c.setState(StateFailed)
		result.State = StateFailed
		return result, err
	}

	// Update step: fatal on failure, nothing else runs
	c.setState(StateUpdating)
	if c.options.SkipUpdate {
		c.logger.Infof("Source update skipped by request")
	} else {
		if err := c.steps.SyncSource(ctx); err != nil {
			return fail(err)
		}
	}

	// Dependency step: fatal on failure, the process table is not touched
	c.setState(StateDependencyResolving)
	if err := c.steps.EnsureEnvironment(ctx); err != nil {
		return fail(err)
	}

	// Discovery step: zero matches is a valid outcome, not an error
	c.setState(StateDiscovering)
	matches, err := c.steps.FindProcesses()
	if err != nil {
		return fail(err)
	}
	for _, m := range matches {
		result.OldPIDs = append(result.OldPIDs, m.PID)
	}

	if len(matches) == 0 {
		c.logger.Infof("No existing instance found, nothing to terminate")
	} else {
		if err := c.terminateAndDrain(ctx, matches); err != nil {
			return fail(err)
		}
	}

	// Launch step
	c.setState(StateLaunching)
	newPID, err := c.steps.Launch(ctx)
	if err != nil {
		return fail(err)
	}

	// Confirmation step: absence of the new instance is a failed deploy,
	// reported distinctly from update/dependency failures
	confirmedPID, err := c.confirm(ctx, newPID)
	if err != nil {
		return fail(err)
	}
	result.NewPID = confirmedPID

	if c.steps.RecordInstance != nil {
		if err := c.steps.RecordInstance(confirmedPID); err != nil {
			c.logger.Warnf("Failed to record confirmed instance, pid: %d, error: %v", confirmedPID, err)
		}
	}

	c.setState(StateConfirmed)
	result.State = StateConfirmed

	c.logger.Infof("Restart confirmed, old PIDs: %v, new PID: %d", result.OldPIDs, result.NewPID)

	return result, nil
}

// runDry performs discovery only and reports what a real run would do
func (c *Controller) runDry() (Result, error) {
	c.setState(StateDiscovering)

	matches, err := c.steps.FindProcesses()
	if err != nil {
		c.setState(StateFailed)
		return Result{State: StateFailed}, err
	}

	result := Result{State: StateDiscovering}
	for _, m := range matches {
		result.OldPIDs = append(result.OldPIDs, m.PID)
	}

	if len(matches) == 0 {
		c.logger.Infof("Dry run: no existing instance, a real run would launch a new one")
	} else {
		c.logger.Infof("Dry run: a real run would terminate PIDs %v and launch a replacement", result.OldPIDs)
	}

	return result, nil
}

// terminateAndDrain signals every matched instance, waits out the grace
// period for the port to be released, and escalates to SIGKILL if the old
// instance holds on. Termination of an already-gone process is success.
func (c *Controller) terminateAndDrain(ctx context.Context, matches []procscan.ProcessInfo) error {
	c.setState(StateTerminating)

	for _, m := range matches {
		c.logger.Infof("Terminating existing instance, pid: %d", m.PID)
		if err := c.steps.Terminate(m.PID); err != nil {
			if errors.IsNotFoundError(err) {
				c.logger.Infof("Instance already stopped, pid: %d", m.PID)
				continue
			}
			// Not fatal: the drain below decides whether the port is free
			c.logger.Warnf("Failed to terminate instance, pid: %d, error: %v", m.PID, err)
		}
	}

	c.setState(StateDraining)

	err := c.steps.WaitForRelease(ctx, c.options.GracePeriod)
	if err == nil {
		return nil
	}

	// Grace window elapsed with the port still bound: escalate
	c.logger.Warnf("Port %d still bound after grace period, escalating to force kill", c.options.Port)

	collection := errors.NewErrorCollection()
	for _, m := range matches {
		running, runErr := c.steps.IsRunning(m.PID)
		if runErr != nil {
			c.logger.Warnf("Failed to probe instance liveness, pid: %d, error: %v", m.PID, runErr)
		}
		if !running {
			continue
		}
		if killErr := c.steps.ForceKill(m.PID); killErr != nil && !errors.IsNotFoundError(killErr) {
			collection.Add(killErr)
		}
	}
	if collection.HasErrors() {
		c.logger.Warnf("Force kill reported errors: %v", collection.ToError())
	}

	if err := c.steps.WaitForRelease(ctx, c.options.ForceKillTimeout); err != nil {
		return errors.NewTimeoutError("port not released after force kill", err).WithContext("port", c.options.Port)
	}

	return nil
}

// confirm re-queries the process table by the same signature and waits for
// the listener, returning the PID of the confirmed instance
func (c *Controller) confirm(ctx context.Context, newPID int) (int, error) {
	if err := c.steps.WaitForListener(ctx, c.options.ConfirmTimeout); err != nil {
		return 0, errors.NewLaunchError("launched instance never bound the target port", err).WithContext("pid", newPID).WithContext("port", c.options.Port)
	}

	matches, err := c.steps.FindProcesses()
	if err != nil {
		return 0, errors.NewLaunchError("failed to confirm launched instance", err).WithContext("pid", newPID)
	}
	if len(matches) == 0 {
		return 0, errors.NewLaunchError("launched instance not found in process table", nil).WithContext("pid", newPID)
	}

	for _, m := range matches {
		if m.PID == newPID {
			return newPID, nil
		}
	}

	// The launched executable may have re-executed itself (e.g. a wrapper
	// script); trust the signature over the launch PID
	c.logger.Warnf("Launched PID %d not matched, confirming by signature: pid %d", newPID, matches[0].PID)
	return matches[0].PID, nil
}
