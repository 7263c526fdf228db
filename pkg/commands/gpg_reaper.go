package commands

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const reapPollInterval = 10 * time.Millisecond

// processReaper owns the gpg child: it collects its exit status and, when
// asked to, gets rid of it with SIGTERM and then SIGKILL. None of its methods
// block for longer than their configured timeouts.
type processReaper struct {
	log         *logrus.Entry
	osCommand   *OSCommand
	cmd         *exec.Cmd
	pid         int
	grace       time.Duration
	waitTimeout time.Duration

	exited bool
	lost   bool
	status unix.WaitStatus
}

func newProcessReaper(log *logrus.Entry, osCommand *OSCommand, cmd *exec.Cmd, grace time.Duration, waitTimeout time.Duration) *processReaper {
	return &processReaper{
		log:         log,
		osCommand:   osCommand,
		cmd:         cmd,
		pid:         cmd.Process.Pid,
		grace:       grace,
		waitTimeout: waitTimeout,
	}
}

// tryReap collects the exit status if the child has exited, without blocking
func (r *processReaper) tryReap() bool {
	if r.exited {
		return true
	}

	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(r.pid, &status, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			// somebody else reaped it, so its status is gone
			r.exited = true
			r.lost = true
			return true
		case err != nil:
			r.log.WithError(err).Error("wait4 failed")
			return false
		case pid == r.pid:
			r.exited = true
			r.status = status
			return true
		}
		return false
	}
}

// pollExit keeps trying to reap the child until the timeout runs out
func (r *processReaper) pollExit(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if r.tryReap() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		time.Sleep(min(reapPollInterval, remaining))
	}
}

// cancel terminates the child: SIGTERM, then SIGKILL if it is still around
// after the grace period
func (r *processReaper) cancel() {
	if r.tryReap() {
		return
	}

	r.log.Warn("terminating gpg")
	if err := r.cmd.Process.Signal(unix.SIGTERM); err != nil {
		r.log.WithError(err).Warn("could not send SIGTERM to gpg")
	}
	if r.waitExit(r.grace) {
		return
	}

	r.log.Warn("killing gpg")
	if err := r.osCommand.Kill(r.cmd); err != nil {
		r.log.WithError(err).Warn("could not kill gpg")
	}
	if !r.waitExit(r.grace) {
		r.log.Error("gpg survived SIGKILL")
	}
}

// wait returns gpg's exit code. If gpg hasn't exited within the wait timeout
// it gets cancelled.
func (r *processReaper) wait() (int, error) {
	if !r.waitExit(r.waitTimeout) {
		r.log.Warn("gpg did not exit after closing its output")
		r.cancel()
	}

	if !r.exited {
		return -1, newGpgError(SystemError, fmt.Sprintf("could not reap gpg (pid %d)", r.pid), nil)
	}
	return r.exitCode()
}

func (r *processReaper) exitCode() (int, error) {
	switch {
	case r.lost:
		return -1, newGpgError(SystemError, "gpg exit status was lost", nil)
	case r.status.Exited():
		return r.status.ExitStatus(), nil
	case r.status.Signaled():
		return -1, newGpgError(SystemError, fmt.Sprintf("gpg was terminated by %s", r.status.Signal()), nil)
	}
	return -1, newGpgError(SystemError, "gpg did not exit normally", nil)
}

func (r *processReaper) release() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Release()
	}
}
