//go:build !unix

package executor

import (
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"
)

// setProcessGroup is a no-op without process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessTree kills the compiler's descendants, then the compiler.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if p, err := process.NewProcess(int32(cmd.Process.Pid)); err == nil {
		if children, err := p.Children(); err == nil {
			for _, c := range children {
				_ = c.Kill()
			}
		}
	}
	return cmd.Process.Kill()
}
