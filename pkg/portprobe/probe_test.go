package portprobe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ops-tools/redeploy/pkg/errors"
)

// ProbeMockLogger is a simple mock implementation of Logger for testing
type ProbeMockLogger struct{}

func (m *ProbeMockLogger) Debugf(format string, args ...interface{}) {}
func (m *ProbeMockLogger) Infof(format string, args ...interface{})  {}
func (m *ProbeMockLogger) Warnf(format string, args ...interface{})  {}
func (m *ProbeMockLogger) Errorf(format string, args ...interface{}) {}

func TestDialAddress(t *testing.T) {
	// A wildcard bind is probed via loopback
	assert.Equal(t, "127.0.0.1:8501", DialAddress("0.0.0.0", 8501))
	assert.Equal(t, "127.0.0.1:8501", DialAddress("", 8501))
	assert.Equal(t, "127.0.0.1:8501", DialAddress("::", 8501))
	assert.Equal(t, "192.168.1.10:8501", DialAddress("192.168.1.10", 8501))
}

func TestIsListening(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()

	assert.True(t, IsListening(address))

	listener.Close()

	// Release may not be instantaneous
	deadline := time.Now().Add(2 * time.Second)
	for IsListening(address) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	assert.False(t, IsListening(address))
}

func TestWaitForListener_Success(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	err = WaitForListener(context.Background(), listener.Addr().String(), 2*time.Second, &ProbeMockLogger{})
	assert.NoError(t, err)
}

func TestWaitForListener_Timeout(t *testing.T) {
	// Grab a port, then release it so nothing listens there
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	listener.Close()

	err = WaitForListener(context.Background(), address, 300*time.Millisecond, &ProbeMockLogger{})
	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
}

func TestWaitForRelease_Success(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()

	go func() {
		time.Sleep(200 * time.Millisecond)
		listener.Close()
	}()

	err = WaitForRelease(context.Background(), address, 3*time.Second, &ProbeMockLogger{})
	assert.NoError(t, err)
}

func TestWaitForRelease_Timeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	err = WaitForRelease(context.Background(), listener.Addr().String(), 300*time.Millisecond, &ProbeMockLogger{})
	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
}

func TestWaitForListener_Cancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = WaitForListener(ctx, address, 5*time.Second, &ProbeMockLogger{})
	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
}
