//go:build windows

package procscan

import (
	"fmt"
)

// listProcesses is not implemented on Windows: the restart procedure targets
// Unix deployment hosts
func listProcesses() ([]ProcessInfo, error) {
	return nil, fmt.Errorf("process table scanning is not supported on windows")
}
