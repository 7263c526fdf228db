package commands

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jesseduffield/lazygpg/pkg/cipher"
)

const (
	statusPrefix = "[GNUPG:] "

	// gpg's own lines are well under 1KiB; anything this long is not gpg talking
	maxStatusLineLength = 64 * 1024

	maxBadPassphrases = 3
)

var trustLevels = map[string]cipher.TrustLevel{
	"TRUST_UNDEFINED": cipher.TrustUndefined,
	"TRUST_NEVER":     cipher.TrustNever,
	"TRUST_MARGINAL":  cipher.TrustMarginal,
	"TRUST_FULLY":     cipher.TrustFully,
	"TRUST_ULTIMATE":  cipher.TrustUltimate,
}

// feedStatus takes bytes read from the status fd and dispatches every complete
// line among them. Partial lines wait for the next call.
func (s *gpgSession) feedStatus(data []byte) error {
	s.statusBuf = append(s.statusBuf, data...)

	start := 0
	for {
		index := bytes.IndexByte(s.statusBuf[start:], '\n')
		if index < 0 {
			break
		}
		line := s.statusBuf[start : start+index]
		start += index + 1
		if err := s.processStatusLine(line); err != nil {
			s.statusBuf = append(s.statusBuf[:0], s.statusBuf[start:]...)
			return err
		}
	}
	s.statusBuf = append(s.statusBuf[:0], s.statusBuf[start:]...)

	if len(s.statusBuf) > maxStatusLineLength {
		return newGpgError(ProtocolError, s.tr.StatusLineTooLongError, nil)
	}
	return nil
}

// flushStatus dispatches an unterminated final line once gpg has closed the
// status fd
func (s *gpgSession) flushStatus() error {
	if len(s.statusBuf) == 0 {
		return nil
	}
	line := s.statusBuf
	s.statusBuf = nil
	return s.processStatusLine(line)
}

func (s *gpgSession) processStatusLine(line []byte) error {
	if debugStatus.Load() {
		s.log.WithField("status", string(line)).Debug("gpg status")
	}

	if !bytes.HasPrefix(line, []byte(statusPrefix)) {
		return newGpgError(ProtocolError, s.tr.UnexpectedStatusError, nil)
	}

	status := string(bytes.TrimRight(line[len(statusPrefix):], "\r"))
	keyword, args, _ := strings.Cut(status, " ")

	switch keyword {
	case "USERID_HINT":
		id, name, _ := strings.Cut(args, " ")
		if _, ok := s.userIDHints[id]; !ok {
			s.userIDHints[id] = name
		}
		return nil
	case "NEED_PASSPHRASE", "NEED_PASSPHRASE_PIN":
		s.needID = firstField(args)
		return nil
	case "GET_HIDDEN":
		return s.requestPassphrase(firstField(args))
	case "GOOD_PASSPHRASE":
		s.badPassphrases = 0
		return nil
	case "BAD_PASSPHRASE":
		if s.badPassphrases >= maxBadPassphrases {
			return newGpgError(CantAuthenticate, s.tr.BadPassphrasesError, nil)
		}
		s.badPassphrases++
		s.broker.forget(s.needID)
		if s.badPassphrases == maxBadPassphrases {
			return newGpgError(CantAuthenticate, s.tr.BadPassphrasesError, nil)
		}
		return nil
	case "UNEXPECTED":
		return newGpgError(SystemError, args, nil)
	case "NODATA":
		s.noData = true
		return nil
	}

	switch {
	case s.mode.checksSignatures():
		s.processSignatureStatus(keyword, args)
	case s.mode == modeEncrypt && keyword == "NO_RECP":
		return newGpgError(SystemError, s.tr.NoValidRecipientsError, nil)
	}

	return nil
}

func (s *gpgSession) processSignatureStatus(keyword string, args string) {
	if trust, ok := trustLevels[keyword]; ok {
		s.trust = trust
		return
	}

	switch keyword {
	case "GOODSIG":
		s.hadSig = true
		s.goodSig = true
		_, s.signer, _ = strings.Cut(args, " ")
	case "VALIDSIG":
		s.validSig = true
		s.fingerprint = firstField(args)
	case "BADSIG":
		s.hadSig = true
		s.badSig = true
		_, s.signer, _ = strings.Cut(args, " ")
	case "ERRSIG":
		s.hadSig = true
		s.errSig = true
	case "NO_PUBKEY":
		s.noPubKey = true
	}
}

func (s *gpgSession) requestPassphrase(key string) error {
	if s.badPassphrases >= maxBadPassphrases {
		return newGpgError(CantAuthenticate, s.tr.BadPassphrasesError, nil)
	}

	name, ok := s.userIDHints[s.needID]
	if !ok {
		name = s.needID
	}

	var prompt string
	switch key {
	case "passphrase.pin.ask":
		prompt = fmt.Sprintf(s.tr.PinPrompt, name)
	case "passphrase.enter":
		prompt = fmt.Sprintf(s.tr.PassphrasePrompt, name)
	default:
		return newGpgError(SystemError, fmt.Sprintf(s.tr.UnexpectedRequestError, key), nil)
	}

	if s.passwdFD < 0 {
		// we never gave gpg a command fd, so it has nowhere to read an answer from
		return newGpgError(SystemError, fmt.Sprintf(s.tr.UnexpectedRequestError, key), nil)
	}

	flags := SecretFlagSecret
	if s.badPassphrases > 0 {
		flags |= SecretFlagReprompt
	}

	passphrase, err := s.broker.request(prompt, s.needID, flags)
	if err != nil {
		return err
	}

	s.clearPendingSecret()
	s.pendingSecret = passphrase
	return nil
}

func firstField(args string) string {
	field, _, _ := strings.Cut(args, " ")
	return field
}
