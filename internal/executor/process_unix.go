//go:build unix

package executor

import (
	"errors"
	"os/exec"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// setProcessGroup runs the compiler in its own process group so a timeout
// can take down everything it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree kills the compiler, its process group and any descendant
// that left the group.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	// Collect strays first; once the group is gone they are reparented.
	strays := descendants(int32(pid))

	err := unix.Kill(-pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		err = cmd.Process.Kill()
	} else {
		err = nil
	}

	for _, p := range strays {
		_ = p.Kill()
	}
	return err
}

// descendants returns every live descendant of pid. Lookup failures are
// ignored; the group kill is the primary mechanism.
func descendants(pid int32) []*process.Process {
	root, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}

	var out []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		children, err := p.Children()
		if err != nil {
			continue
		}
		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out
}
