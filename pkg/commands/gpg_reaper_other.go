//go:build unix && !linux

package commands

import "time"

func (r *processReaper) waitExit(timeout time.Duration) bool {
	return r.pollExit(timeout)
}
