//go:build windows

package scan

import (
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; tree termination goes through
// taskkill instead of process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the scanner and every child it spawned.
// Process.Kill alone only reaches the parent on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
