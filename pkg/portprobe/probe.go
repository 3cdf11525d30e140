package portprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ops-tools/redeploy/pkg/errors"
	"github.com/ops-tools/redeploy/pkg/logging"
)

const (
	pollInterval = 200 * time.Millisecond
	dialTimeout  = 500 * time.Millisecond
)

// DialAddress returns the address to probe for a listener bound to the
// given bind address. A wildcard bind is probed via loopback.
func DialAddress(bindAddress string, port int) string {
	host := bindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", port))
}

// IsListening reports whether a TCP listener currently accepts connections
// on the address
func IsListening(address string) bool {
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitForListener polls until a TCP listener accepts connections on the
// address, or the timeout elapses
func WaitForListener(ctx context.Context, address string, timeout time.Duration, logger logging.Logger) error {
	logger.Debugf("Waiting for listener, address: %s, timeout: %v", address, timeout)

	deadline := time.Now().Add(timeout)
	for {
		if IsListening(address) {
			logger.Debugf("Listener is up, address: %s", address)
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewTimeoutError("no listener within timeout", nil).WithContext("address", address).WithContext("timeout", timeout.String())
		}
		select {
		case <-ctx.Done():
			return errors.NewTimeoutError("cancelled while waiting for listener", ctx.Err()).WithContext("address", address)
		case <-time.After(pollInterval):
		}
	}
}

// WaitForRelease polls until no TCP listener accepts connections on the
// address, or the timeout elapses
func WaitForRelease(ctx context.Context, address string, timeout time.Duration, logger logging.Logger) error {
	logger.Debugf("Waiting for port release, address: %s, timeout: %v", address, timeout)

	deadline := time.Now().Add(timeout)
	for {
		if !IsListening(address) {
			logger.Debugf("Port released, address: %s", address)
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewTimeoutError("port not released within timeout", nil).WithContext("address", address).WithContext("timeout", timeout.String())
		}
		select {
		case <-ctx.Done():
			return errors.NewTimeoutError("cancelled while waiting for port release", ctx.Err()).WithContext("address", address)
		case <-time.After(pollInterval):
		}
	}
}
