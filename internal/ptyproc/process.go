// Package ptyproc spawns service commands inside a pseudo-terminal and
// manages their lifetime: output streaming with drop-oldest backpressure,
// attach writes, resize, and graceful-then-hard termination. The teacher
// this repo is built from runs children via plain os/exec with an
// io.Writer log sink; the PTY lifecycle here (process-group setup,
// Setsize, exit-status classification) is grounded on a different pack
// repo's interactive process runner, adapted down to the plain
// byte-stream contract this supervisor needs.
package ptyproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/micromux/micromux/internal/config"
)

// ExitStatus describes how a service's child process ended.
type ExitStatus struct {
	Code      int
	Signaled  bool
	Signal    string
	Synthetic bool // spawn failed before a child ever existed
	Unknown   bool // termination could not be confirmed (spec.md §7)
}

// Success reports whether the service completed with exit code 0 and was
// not killed by a signal.
func (s ExitStatus) Success() bool { return !s.Signaled && !s.Unknown && s.Code == 0 }

// Process is one running (or just-exited) service child.
type Process struct {
	name string
	cmd  *exec.Cmd
	pty  *os.File

	outputCh chan []byte
	ring     *RingBuffer

	exitOnce   sync.Once
	done       chan struct{}
	exitStatus ExitStatus

	terminateOnce sync.Once
}

// Start spawns spec's command inside a PTY of the given size. On spawn
// failure it returns a synthetic ExitStatus instead of an error for
// anything the supervisor should treat uniformly with a real process
// exit (binary missing, cwd invalid, PTY allocation failure); it returns
// a plain error for an empty command or when ctx is already done.
func Start(ctx context.Context, spec *config.ServiceSpec, rows, cols int, ringBytes int) (*Process, ExitStatus, error) {
	if len(spec.Command) == 0 {
		return nil, ExitStatus{}, fmt.Errorf("service %q has no command", spec.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, ExitStatus{}, err
	}

	var cmd *exec.Cmd
	if spec.Shell {
		cmd = exec.Command("sh", "-c", strings.Join(spec.Command, " "))
	} else {
		cmd = exec.Command(spec.Command[0], spec.Command[1:]...)
	}
	cmd.Dir = spec.Cwd
	cmd.Env = flattenEnv(spec.Env)
	setProcGroup(cmd)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, ExitStatus{Synthetic: true, Code: -1}, nil
	}

	p := &Process{
		name:     spec.Name,
		cmd:      cmd,
		pty:      f,
		outputCh: make(chan []byte, 64),
		ring:     NewRingBuffer(ringBytes),
		done:     make(chan struct{}),
	}

	go p.pumpOutput()
	go p.waitForExit()

	return p, ExitStatus{}, nil
}

func flattenEnv(env []config.EnvVar) []string {
	seen := make(map[string]int, len(env))
	out := make([]string, 0, len(env))
	for _, e := range env {
		if idx, ok := seen[e.Name]; ok {
			out[idx] = e.Name + "=" + e.Value
			continue
		}
		seen[e.Name] = len(out)
		out = append(out, e.Name+"="+e.Value)
	}
	return out
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Pgid returns the child's process group id, which equals its pid since
// setProcGroup makes it the group leader.
func (p *Process) Pgid() int { return p.Pid() }

// Output returns the channel of output chunks. The channel is closed once
// the output pump observes EOF (the child has exited and the PTY master
// is drained).
func (p *Process) Output() <-chan []byte { return p.outputCh }

// Replay returns everything currently retained in the ring buffer, for a
// newly attached UI to backfill its view.
func (p *Process) Replay() []byte { return p.ring.Bytes() }

// Write delivers attach keystrokes to the child's PTY.
func (p *Process) Write(b []byte) (int, error) { return p.pty.Write(b) }

// Resize changes the PTY window size.
func (p *Process) Resize(rows, cols int) error {
	return pty.Setsize(p.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Wait blocks until the process has exited and returns its status.
func (p *Process) Wait() ExitStatus {
	<-p.done
	return p.exitStatus
}

func (p *Process) setExitStatus(status ExitStatus) {
	p.exitOnce.Do(func() {
		p.exitStatus = status
		close(p.done)
	})
}

// Terminate requests graceful shutdown: SIGTERM to the process group,
// then SIGKILL after grace if it hasn't exited. Idempotent — calling it
// more than once just waits on the same outcome.
func (p *Process) Terminate(ctx context.Context, grace time.Duration) ExitStatus {
	p.terminateOnce.Do(func() {
		go p.terminate(grace)
	})

	select {
	case <-p.done:
		return p.exitStatus
	case <-ctx.Done():
		return ExitStatus{Unknown: true}
	}
}

func (p *Process) terminate(grace time.Duration) {
	pid := p.Pid()
	if pid == 0 {
		return
	}
	_ = signalGroup(pid, syscall.SIGTERM)

	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}

	if err := signalGroup(pid, syscall.SIGKILL); err != nil {
		// Process group is already gone; nothing more we can do.
		return
	}

	select {
	case <-p.done:
	case <-time.After(grace):
		// Hard kill sent but exit never observed: leak is possible and
		// must be surfaced, per spec.md §7.
		p.setExitStatus(ExitStatus{Unknown: true})
	}
}

func (p *Process) pumpOutput() {
	buf := make([]byte, 32*1024)
	for {
		n, err := p.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.ring.Write(chunk)
			select {
			case p.outputCh <- chunk:
			default:
				// Consumer lagging: drop this chunk rather than block the
				// pump. The ring buffer above still has it for replay.
			}
		}
		if err != nil {
			close(p.outputCh)
			return
		}
	}
}

func (p *Process) waitForExit() {
	err := p.cmd.Wait()
	_ = p.pty.Close()

	status := ExitStatus{}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				status.Code, status.Signaled, status.Signal = exitStatusFromWaitStatus(ws)
			} else {
				status.Code = 1
			}
		} else {
			status.Code = 1
		}
	}

	p.setExitStatus(status)
}
