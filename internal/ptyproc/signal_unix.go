//go:build unix

package ptyproc

import "syscall"

// signalGroup delivers sig to every process in pid's process group (pid is
// the group leader, so -pid addresses the whole group).
func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

// exitStatusFromWaitStatus classifies a completed child's wait status into
// an exit code, mirroring the convention that a process killed by signal N
// reports as 128+N.
func exitStatusFromWaitStatus(ws syscall.WaitStatus) (code int, signaled bool, signal string) {
	if ws.Signaled() {
		return 128 + int(ws.Signal()), true, ws.Signal().String()
	}
	return ws.ExitStatus(), false, ""
}
