//go:build unix

package confprobe

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolateProcess puts the toolchain subprocess in its own process group
// and arranges for the whole group to be killed on cancellation, so a
// hung compiler cannot leave grandchildren behind.
func isolateProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
