//go:build linux

package ptyproc

import (
	"os/exec"
	"syscall"
)

// setProcGroup places cmd in its own process group so terminate/kill can
// address every descendant with one signal, and arranges for the child to
// die if this engine crashes without a chance to clean up.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
