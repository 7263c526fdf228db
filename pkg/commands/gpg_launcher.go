package commands

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/samber/lo"
	"golang.org/x/sys/unix"
)

// the child sees the status pipe as fd 3 and the command pipe as fd 4, since
// exec.Cmd hands ExtraFiles out starting at 3
const (
	childStatusFD  = "3"
	childCommandFD = "4"
)

// digests we pass on to gpg. Anything else leaves the choice to gpg.
var digestWhitelist = []string{"MD2", "MD5", "SHA1", "RIPEMD160"}

func digestArg(digest string) (string, bool) {
	upper := strings.ToUpper(digest)
	if !lo.Contains(digestWhitelist, upper) {
		return "", false
	}
	return "--digest-algo=" + upper, true
}

// timeoutOrDefault falls back to the default for a zero or negative timeout
// and rounds anything shorter than poll's millisecond resolution up to 1ms
func timeoutOrDefault(timeout time.Duration, fallback time.Duration) time.Duration {
	if timeout <= 0 {
		return fallback
	}
	return max(timeout, time.Millisecond)
}

// buildArgv returns gpg's arguments for an operation, excluding argv[0]
func (c *GpgCommand) buildArgv(mode gpgMode, opts gpgOptions) []string {
	gpgConfig := c.Config.UserConfig.Gpg

	args := []string{"--verbose", "--no-secmem-warning", "--no-greeting", "--no-tty"}
	if gpgConfig.HomeDir != "" {
		args = append(args, "--homedir", gpgConfig.HomeDir)
	}
	if !mode.needsPassphrase() {
		args = append(args, "--batch", "--yes")
	}
	args = append(args, "--status-fd="+childStatusFD)
	if mode.needsPassphrase() {
		args = append(args, "--command-fd="+childCommandFD)
	}
	args = append(args, c.OSCommand.SplitArgs(gpgConfig.ExtraArgs)...)

	switch mode {
	case modeSign:
		args = append(args, "--sign", "--detach")
		if opts.Armor {
			args = append(args, "--armor")
		}
		if digest, ok := digestArg(opts.Digest); ok {
			args = append(args, digest)
		}
		if opts.UserID != "" {
			args = append(args, "-u", opts.UserID)
		}
		args = append(args, "--output", "-")
	case modeVerify:
		if opts.Offline {
			args = append(args, "--keyserver-options", "no-auto-key-retrieve")
		}
		args = append(args, "--verify")
		if opts.SigFile != "" {
			args = append(args, opts.SigFile)
		}
		args = append(args, "-")
	case modeEncrypt:
		args = append(args, "--encrypt")
		if opts.Armor {
			args = append(args, "--armor")
		}
		if opts.AlwaysTrust {
			args = append(args, "--always-trust")
		}
		if opts.UserID != "" {
			args = append(args, "-u", opts.UserID)
		}
		for _, recipient := range opts.Recipients {
			args = append(args, "-r", recipient)
		}
		args = append(args, "--output", "-")
	case modeDecrypt:
		args = append(args, "--decrypt", "--output", "-")
	case modeImport:
		args = append(args, "--import", "-")
	case modeExport:
		if opts.Armor {
			args = append(args, "--armor")
		}
		args = append(args, "--export")
		args = append(args, opts.Recipients...)
	}

	return args
}

type childPipes struct {
	files []*os.File
}

// open creates a pipe and keeps the child's end. parentReads says which end
// we hold on to.
func (p *childPipes) open(parentReads bool) (int, *os.File, error) {
	readFD, writeFD, err := newPipe()
	if err != nil {
		return -1, nil, err
	}
	if parentReads {
		child := os.NewFile(uintptr(writeFD), "gpg-pipe")
		p.files = append(p.files, child)
		return readFD, child, nil
	}
	child := os.NewFile(uintptr(readFD), "gpg-pipe")
	p.files = append(p.files, child)
	return writeFD, child, nil
}

func (p *childPipes) close() {
	for _, file := range p.files {
		_ = file.Close()
	}
	p.files = nil
}

// spawn starts gpg for one operation with its pipes wired up. gpg runs in its
// own session without a controlling terminal.
func (c *GpgCommand) spawn(mode gpgMode, opts gpgOptions, input io.Reader, output io.Writer) (*gpgSession, error) {
	gpgConfig := c.Config.UserConfig.Gpg
	defaults := config.GetDefaultConfig().Gpg
	pollTimeout := timeoutOrDefault(gpgConfig.PollTimeout, defaults.PollTimeout)
	terminateGrace := timeoutOrDefault(gpgConfig.TerminateGrace, defaults.TerminateGrace)
	waitTimeout := timeoutOrDefault(gpgConfig.WaitTimeout, defaults.WaitTimeout)

	path, err := c.OSCommand.LookPath(gpgConfig.Path)
	if err != nil {
		return nil, newGpgError(SpawnError, c.Tr.GpgNotFoundError, err)
	}

	session := newSession(c.Log, c.Tr, mode, opts)
	session.input = input
	if output != nil {
		session.output = output
	}
	session.charset = c.charset
	session.pollTimeout = pollTimeout
	session.broker = &passphraseBroker{log: session.log, tr: c.Tr, store: c.Store, charset: c.charset}

	pipes := &childPipes{}
	defer pipes.close()

	var stdin, stdout, stderr, status, passwd *os.File
	if err := func() error {
		var err error
		if session.stdinFD, stdin, err = pipes.open(false); err != nil {
			return err
		}
		if session.stdoutFD, stdout, err = pipes.open(true); err != nil {
			return err
		}
		if session.stderrFD, stderr, err = pipes.open(true); err != nil {
			return err
		}
		if session.statusFD, status, err = pipes.open(true); err != nil {
			return err
		}
		if mode.needsPassphrase() {
			if session.passwdFD, passwd, err = pipes.open(false); err != nil {
				return err
			}
		}
		for _, fd := range []int{session.stdinFD, session.stdoutFD, session.stderrFD, session.statusFD} {
			if err := unix.SetNonblock(fd, true); err != nil {
				return err
			}
		}
		return nil
	}(); err != nil {
		session.closeFDs()
		return nil, newGpgError(SpawnError, err.Error(), err)
	}

	cmd := c.OSCommand.NewCmd(path, c.buildArgv(mode, opts)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{status}
	if passwd != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, passwd)
	}
	c.OSCommand.PrepareForSession(cmd)

	if err := cmd.Start(); err != nil {
		session.closeFDs()
		return nil, newGpgError(SpawnError, err.Error(), err)
	}

	session.cmd = cmd
	session.log = session.log.WithField("pid", cmd.Process.Pid)
	session.broker.log = session.log
	session.reaper = newProcessReaper(session.log, c.OSCommand, cmd, terminateGrace, waitTimeout)

	if input == nil {
		session.inputEOF = true
		closeFD(&session.stdinFD)
	}

	session.log.WithField("args", cmd.Args[1:]).Info("gpg started")
	return session, nil
}
