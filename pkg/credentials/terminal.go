package credentials

import (
	"fmt"
	"io"
	"os"

	"github.com/jesseduffield/lazygpg/pkg/commands"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/mattn/go-isatty"
	"github.com/moby/term"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// maxSecretLength bounds how much we read for a single passphrase
const maxSecretLength = 4096

// ttyStream is a terminal we can switch echo off on
type ttyStream struct {
	file       io.ReadWriteCloser
	Fd         uintptr
	IsTerminal bool
	State      *term.State
}

func newTTYStream(file io.ReadWriteCloser) *ttyStream {
	fd, isTerminal := term.GetFdInfo(file)
	return &ttyStream{file: file, Fd: fd, IsTerminal: isTerminal}
}

func (s *ttyStream) DisableEcho() error {
	state, err := term.SaveState(s.Fd)
	if err != nil {
		return err
	}
	if err := term.DisableEcho(s.Fd, state); err != nil {
		return err
	}
	s.State = state
	return nil
}

func (s *ttyStream) RestoreTerminal() {
	if s.State != nil {
		_ = term.RestoreTerminal(s.Fd, s.State)
		s.State = nil
	}
}

// TerminalStore asks for secrets on the terminal, with echo switched off
type TerminalStore struct {
	Log *logrus.Entry
	Tr  *i18n.TranslationSet

	openTTY func() (io.ReadWriteCloser, error)
}

var _ commands.SecretStore = &TerminalStore{}

// NewTerminalStore asks on /dev/tty, or on stdin when that is a terminal and
// /dev/tty can't be opened
func NewTerminalStore(log *logrus.Entry, tr *i18n.TranslationSet) *TerminalStore {
	return &TerminalStore{
		Log:     log,
		Tr:      tr,
		openTTY: openControllingTerminal,
	}
}

func openControllingTerminal() (io.ReadWriteCloser, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err == nil {
		return tty, nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return nopCloser{os.Stdin}, nil
	}
	return nil, err
}

type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }

// ForgetSecret does nothing: a terminal holds nothing to invalidate
func (s *TerminalStore) ForgetSecret(id string) {}

func (s *TerminalStore) RequestSecret(prompt string, id string, flags commands.SecretFlags) ([]byte, error) {
	file, err := s.openTTY()
	if err != nil {
		s.Log.WithError(err).Warn("could not open a terminal")
		return nil, xerrors.New(s.Tr.NoTerminalError)
	}
	defer file.Close()

	tty := newTTYStream(file)
	if !tty.IsTerminal {
		return nil, xerrors.New(s.Tr.NoTerminalError)
	}

	if flags.Has(commands.SecretFlagSecret) {
		if err := tty.DisableEcho(); err != nil {
			return nil, err
		}
		defer tty.RestoreTerminal()
	}

	if flags.Has(commands.SecretFlagReprompt) {
		fmt.Fprintln(file, s.Tr.BadPassphraseRetry)
	}
	fmt.Fprintln(file, prompt)
	fmt.Fprint(file, s.Tr.TerminalPrompt)

	answer, err := readSecretLine(file)
	if flags.Has(commands.SecretFlagSecret) {
		// the user's newline was not echoed
		fmt.Fprintln(file)
	}
	return answer, err
}

// readSecretLine reads up to the end of the line, one byte at a time so that
// nothing past the newline is consumed and no buffered copy of the secret is
// left behind. End of input before anything was typed means the user
// cancelled.
func readSecretLine(r io.Reader) ([]byte, error) {
	line := make([]byte, 0, 64)
	var b [1]byte

	for {
		n, err := r.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			if len(line) == maxSecretLength {
				secret.Wipe(line)
				return nil, xerrors.New("passphrase is too long")
			}
			if len(line) == cap(line) {
				grown := make([]byte, len(line), 2*cap(line))
				copy(grown, line)
				secret.Wipe(line)
				line = grown
			}
			line = append(line, b[0])
			continue
		}
		if err == io.EOF {
			if len(line) == 0 {
				return nil, commands.ErrSecretCancelled
			}
			break
		}
		if err != nil {
			secret.Wipe(line)
			return nil, err
		}
	}

	if len(line) > 0 && line[len(line)-1] == '\r' {
		line[len(line)-1] = 0
		line = line[:len(line)-1]
	}
	return line, nil
}
