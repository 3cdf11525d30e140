//go:build linux

package procscan

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
)

// listProcesses enumerates live processes by walking /proc. Entries that
// vanish mid-scan or cannot be read are skipped: processes exit all the
// time and a partial view is the normal case, not an error.
func listProcesses() ([]ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var processes []ProcessInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmdline := parseCmdline(data)
		if len(cmdline) == 0 {
			// Kernel threads have an empty cmdline
			continue
		}

		processes = append(processes, ProcessInfo{PID: pid, Cmdline: cmdline})
	}

	return processes, nil
}

// parseCmdline splits the NUL-separated /proc/<pid>/cmdline format into an
// argument vector
func parseCmdline(data []byte) []string {
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return nil
	}

	parts := bytes.Split(data, []byte{0})
	cmdline := make([]string, 0, len(parts))
	for _, part := range parts {
		cmdline = append(cmdline, string(part))
	}
	return cmdline
}
