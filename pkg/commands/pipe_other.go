//go:build unix && !linux

package commands

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// newPipe returns the read and write ends of a pipe, both close-on-exec.
// Without pipe2 we hold the fork lock so no child started in between inherits them.
func newPipe() (int, int, error) {
	var p [2]int
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	return p[0], p[1], nil
}
