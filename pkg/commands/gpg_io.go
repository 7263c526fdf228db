package commands

import (
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// ioChunkSize bounds every read and write we do in a single step
const ioChunkSize = 4096

func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func writeRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

type pollSet struct {
	fds []unix.PollFd
}

func (p *pollSet) watch(fd int, events int16) int {
	if fd < 0 {
		return -1
	}
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: events})
	return len(p.fds) - 1
}

// ready is true for any revent, so that hangups and errors get picked up by
// the read or write that follows
func (p *pollSet) ready(index int) bool {
	return index >= 0 && p.fds[index].Revents != 0
}

// step waits for gpg to do something, for at most the poll timeout, and then
// does one bounded read or write on each descriptor that is ready. It returns
// true once gpg has closed its status, stdout and stderr pipes.
func (s *gpgSession) step(control Control) (bool, error) {
	if s.complete() {
		return true, nil
	}

	set := &pollSet{fds: make([]unix.PollFd, 0, 6)}
	statusIndex, stdoutIndex, stderrIndex, passwdIndex := -1, -1, -1, -1
	if !s.statusComplete {
		statusIndex = set.watch(s.statusFD, unix.POLLIN)
	}
	if !s.stdoutEOF {
		stdoutIndex = set.watch(s.stdoutFD, unix.POLLIN)
	}
	if !s.stderrEOF {
		stderrIndex = set.watch(s.stderrFD, unix.POLLIN)
	}
	if s.pendingSecret != nil {
		passwdIndex = set.watch(s.passwdFD, unix.POLLOUT)
	}
	stdinIndex := set.watch(s.stdinFD, unix.POLLOUT)
	cancelIndex := set.watch(control.CancelFD(), unix.POLLIN)

	n, err := unix.Poll(set.fds, int(s.pollTimeout/time.Millisecond))
	if err == unix.EINTR || (err == nil && n == 0) {
		return false, nil
	}
	if err != nil {
		return s.fail(newGpgError(SystemError, err.Error(), err))
	}

	if set.ready(cancelIndex) && control.CancelRequested() {
		s.log.Info("operation cancelled")
		return s.fail(newGpgError(UserCancelled, s.tr.CancelledError, nil))
	}

	if set.ready(statusIndex) {
		if err := s.readStatus(); err != nil {
			return s.fail(err)
		}
	}
	if set.ready(stdoutIndex) {
		if err := s.readStdout(); err != nil {
			return s.fail(err)
		}
	}
	if set.ready(stderrIndex) {
		if err := s.readStderr(); err != nil {
			return s.fail(err)
		}
	}
	if set.ready(passwdIndex) {
		if err := s.writePassphrase(); err != nil {
			return s.fail(err)
		}
	}
	if set.ready(stdinIndex) {
		if err := s.writeStdin(); err != nil {
			return s.fail(err)
		}
	}

	return s.complete(), nil
}

func (s *gpgSession) fail(err error) (bool, error) {
	if s.reaper != nil {
		s.reaper.cancel()
	}
	return false, err
}

func ioError(err error) error {
	return newGpgError(SystemError, err.Error(), err)
}

func (s *gpgSession) readStatus() error {
	n, err := readRetry(s.statusFD, s.readBuf)
	switch {
	case err == unix.EAGAIN:
		return nil
	case err != nil:
		return ioError(err)
	case n == 0:
		closeFD(&s.statusFD)
		if err := s.flushStatus(); err != nil {
			return err
		}
		s.statusComplete = true
		return nil
	}
	return s.feedStatus(s.readBuf[:n])
}

func (s *gpgSession) readStdout() error {
	n, err := readRetry(s.stdoutFD, s.readBuf)
	switch {
	case err == unix.EAGAIN:
		return nil
	case err != nil:
		return ioError(err)
	case n == 0:
		closeFD(&s.stdoutFD)
		s.stdoutEOF = true
		return nil
	}
	if _, err := s.output.Write(s.readBuf[:n]); err != nil {
		return ioError(err)
	}
	return nil
}

func (s *gpgSession) readStderr() error {
	n, err := readRetry(s.stderrFD, s.readBuf)
	switch {
	case err == unix.EAGAIN:
		return nil
	case err != nil:
		return ioError(err)
	case n == 0:
		closeFD(&s.stderrFD)
		s.stderrEOF = true
		return nil
	}
	if room := maxDiagnosticsSize - s.diagnostics.Len(); room > 0 {
		s.diagnostics.Write(s.readBuf[:min(n, room)])
	}
	return nil
}

func (s *gpgSession) writePassphrase() error {
	data := s.pendingSecret.Bytes()
	for s.pendingOffset < len(data) {
		n, err := writeRetry(s.passwdFD, data[s.pendingOffset:])
		switch {
		case err == unix.EAGAIN:
			return nil
		case err == unix.EPIPE:
			// gpg is gone; its exit status will tell the story
			s.log.Warn("gpg closed the command fd before reading the passphrase")
			s.clearPendingSecret()
			closeFD(&s.passwdFD)
			return nil
		case err != nil:
			return ioError(err)
		}
		s.pendingOffset += n
	}
	s.clearPendingSecret()
	return nil
}

func (s *gpgSession) writeStdin() error {
	if len(s.pendingInput) == 0 && !s.inputEOF {
		n, err := s.input.Read(s.inputBuf)
		if err != nil && err != io.EOF {
			return ioError(err)
		}
		s.pendingInput = s.inputBuf[:n]
		s.inputEOF = err == io.EOF
	}

	if len(s.pendingInput) > 0 {
		n, err := writeRetry(s.stdinFD, s.pendingInput)
		switch {
		case err == unix.EAGAIN:
			return nil
		case err == unix.EPIPE:
			s.log.Warn("gpg stopped reading its input")
			s.pendingInput = nil
			closeFD(&s.stdinFD)
			return nil
		case err != nil:
			return ioError(err)
		}
		s.pendingInput = s.pendingInput[n:]
	}

	if len(s.pendingInput) == 0 && s.inputEOF {
		closeFD(&s.stdinFD)
	}
	return nil
}
