package commands

import "golang.org/x/sys/unix"

// newPipe returns the read and write ends of a pipe, both close-on-exec
func newPipe() (int, int, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return p[0], p[1], nil
}
