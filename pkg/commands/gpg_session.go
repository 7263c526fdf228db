package commands

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jesseduffield/lazygpg/pkg/cipher"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/jesseduffield/lazygpg/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding"
)

type gpgMode int

const (
	modeSign gpgMode = iota
	modeVerify
	modeEncrypt
	modeDecrypt
	modeImport
	modeExport
)

func (m gpgMode) String() string {
	switch m {
	case modeSign:
		return "sign"
	case modeVerify:
		return "verify"
	case modeEncrypt:
		return "encrypt"
	case modeDecrypt:
		return "decrypt"
	case modeImport:
		return "import"
	case modeExport:
		return "export"
	}
	return "unknown"
}

// needsPassphrase tells us whether gpg may ask us for a passphrase, in which
// case it gets a command fd instead of --batch
func (m gpgMode) needsPassphrase() bool {
	return m == modeSign || m == modeDecrypt
}

func (m gpgMode) checksSignatures() bool {
	return m == modeVerify || m == modeDecrypt
}

type gpgOptions struct {
	Armor       bool
	AlwaysTrust bool
	Offline     bool
	UserID      string
	Digest      string
	SigFile     string
	Recipients  []string
}

const maxDiagnosticsSize = 1 << 20

var debugStatus atomic.Bool

// SetDebug switches tracing of gpg's status lines on or off for every operation
func SetDebug(enabled bool) {
	debugStatus.Store(enabled)
}

// gpgSession is everything we know about one gpg invocation. It is never
// shared between operations.
type gpgSession struct {
	id      string
	mode    gpgMode
	options gpgOptions
	log     *logrus.Entry
	tr      *i18n.TranslationSet

	cmd    *exec.Cmd
	reaper *processReaper

	stdinFD  int
	stdoutFD int
	stderrFD int
	statusFD int
	passwdFD int

	input        io.Reader
	inputBuf     []byte
	pendingInput []byte
	inputEOF     bool
	output       io.Writer
	readBuf      []byte

	statusBuf   []byte
	diagnostics bytes.Buffer
	charset     encoding.Encoding

	pollTimeout time.Duration

	broker         *passphraseBroker
	needID         string
	userIDHints    map[string]string
	badPassphrases int
	pendingSecret  secret.Buffer
	pendingOffset  int

	statusComplete bool
	stdoutEOF      bool
	stderrEOF      bool
	exitStatus     int

	hadSig      bool
	goodSig     bool
	validSig    bool
	badSig      bool
	errSig      bool
	noPubKey    bool
	noData      bool
	trust       cipher.TrustLevel
	signer      string
	fingerprint string
}

func newSession(log *logrus.Entry, tr *i18n.TranslationSet, mode gpgMode, options gpgOptions) *gpgSession {
	id := uuid.New().String()
	return &gpgSession{
		id:          id,
		mode:        mode,
		options:     options,
		log:         log.WithFields(logrus.Fields{"session": id, "mode": mode.String()}),
		tr:          tr,
		stdinFD:     -1,
		stdoutFD:    -1,
		stderrFD:    -1,
		statusFD:    -1,
		passwdFD:    -1,
		output:      io.Discard,
		readBuf:     make([]byte, ioChunkSize),
		inputBuf:    make([]byte, ioChunkSize),
		userIDHints: map[string]string{},
		pollTimeout: 30 * time.Second,
	}
}

func (s *gpgSession) complete() bool {
	return s.statusComplete && s.stdoutEOF && s.stderrEOF
}

// diagnosticsText is whatever gpg wrote to stderr, decoded from the locale's
// charset and trimmed
func (s *gpgSession) diagnosticsText() string {
	raw := s.diagnostics.Bytes()
	if s.charset != nil {
		if decoded, err := s.charset.NewDecoder().Bytes(raw); err == nil {
			raw = decoded
		}
	}
	return strings.TrimSpace(utils.NormalizeLinefeeds(string(raw)))
}

func (s *gpgSession) exitError() error {
	if s.exitStatus == 0 {
		return nil
	}
	if diagnostics := s.diagnosticsText(); diagnostics != "" {
		return newGpgError(SystemError, diagnostics, nil)
	}
	return newGpgError(SystemError, s.tr.GpgFailedError, nil)
}

func (s *gpgSession) validity() *cipher.Validity {
	validity := &cipher.Validity{
		Description: s.diagnosticsText(),
		Trust:       s.trust,
		Signer:      s.signer,
		Fingerprint: s.fingerprint,
	}

	switch {
	case s.validSig:
		switch s.trust {
		case cipher.TrustNone, cipher.TrustUndefined:
			validity.Status = cipher.StatusUnknown
		case cipher.TrustNever:
			validity.Status = cipher.StatusBad
		default:
			validity.Status = cipher.StatusGood
		}
	case s.noPubKey:
		validity.Status = cipher.StatusNeedPublicKey
	default:
		validity.Status = cipher.StatusBad
	}

	return validity
}

func (s *gpgSession) clearPendingSecret() {
	if s.pendingSecret != nil {
		s.pendingSecret.Destroy()
		s.pendingSecret = nil
	}
	s.pendingOffset = 0
}

func closeFD(fd *int) {
	if *fd >= 0 {
		_ = unix.Close(*fd)
		*fd = -1
	}
}

func (s *gpgSession) closeFDs() {
	closeFD(&s.stdinFD)
	closeFD(&s.stdoutFD)
	closeFD(&s.stderrFD)
	closeFD(&s.statusFD)
	closeFD(&s.passwdFD)
}

// close tears the session down: our pipe ends are closed, any secret still
// pending is wiped, and gpg is killed if it hasn't been reaped yet
func (s *gpgSession) close() {
	s.closeFDs()
	s.clearPendingSecret()
	secret.Wipe(s.pendingInput)
	secret.Wipe(s.inputBuf)
	s.pendingInput = nil

	if s.reaper != nil {
		s.reaper.cancel()
		s.reaper.release()
	}
}
