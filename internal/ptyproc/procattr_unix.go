//go:build unix && !linux

package ptyproc

import (
	"os/exec"
	"syscall"
)

// setProcGroup places cmd in its own process group so terminate/kill can
// address every descendant with one signal. Pdeathsig is Linux-only; other
// unix targets fall back to Setpgid alone.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
