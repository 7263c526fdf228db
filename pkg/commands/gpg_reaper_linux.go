package commands

import (
	"time"

	"golang.org/x/sys/unix"
)

// waitExit waits up to timeout for the child to exit and reaps it. A pidfd
// lets us sleep in poll instead of spinning on wait4.
func (r *processReaper) waitExit(timeout time.Duration) bool {
	if r.tryReap() {
		return true
	}

	pidfd, err := unix.PidfdOpen(r.pid, 0)
	if err != nil {
		// kernels before 5.3
		return r.pollExit(timeout)
	}
	defer unix.Close(pidfd)

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		fds := []unix.PollFd{{Fd: int32(pidfd), Events: unix.POLLIN}}
		_, err := unix.Poll(fds, int(remaining/time.Millisecond))
		if err == unix.EINTR && remaining > 0 {
			continue
		}
		if r.tryReap() {
			return true
		}
		if remaining == 0 || err != nil {
			return false
		}
		// pidfds become readable once the process is a zombie, so this is rare
		time.Sleep(min(reapPollInterval, remaining))
	}
}
