//go:build unix && !linux

package procscan

import (
	"os/exec"
	"strconv"
	"strings"
)

// listProcesses enumerates live processes via ps on Unix systems without a
// /proc filesystem (macOS, BSDs)
func listProcesses() ([]ProcessInfo, error) {
	output, err := exec.Command("ps", "-axo", "pid=,args=").Output()
	if err != nil {
		return nil, err
	}

	var processes []ProcessInfo
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		processes = append(processes, ProcessInfo{PID: pid, Cmdline: fields[1:]})
	}

	return processes, nil
}
