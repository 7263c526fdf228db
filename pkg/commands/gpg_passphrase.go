package commands

import (
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/xerrors"
)

// SecretFlags tell a SecretStore how to ask for a secret
type SecretFlags uint

const (
	// SecretFlagSecret means the answer must not be echoed
	SecretFlagSecret SecretFlags = 1 << iota
	// SecretFlagReprompt means the last answer for this key was wrong
	SecretFlagReprompt
)

func (f SecretFlags) Has(flag SecretFlags) bool {
	return f&flag != 0
}

// ErrSecretCancelled is returned by a SecretStore when the user declines to
// give a secret
var ErrSecretCancelled = xerrors.New("secret request cancelled")

// SecretStore is where passphrases come from. The caller owns the returned
// slice and wipes it once done with it.
type SecretStore interface {
	RequestSecret(prompt string, id string, flags SecretFlags) ([]byte, error)
	ForgetSecret(id string)
}

// passphraseBroker answers gpg's passphrase requests from a SecretStore
type passphraseBroker struct {
	log     *logrus.Entry
	tr      *i18n.TranslationSet
	store   SecretStore
	charset encoding.Encoding
}

// request asks the store for a secret and returns it newline terminated,
// converted to the locale's charset, ready to be written to gpg's command fd.
// Every intermediate copy is wiped.
func (b *passphraseBroker) request(prompt string, id string, flags SecretFlags) (secret.Buffer, error) {
	if b == nil || b.store == nil {
		return nil, newGpgError(UserCancelled, b.cancelledMessage(), nil)
	}

	b.log.WithField("keyID", id).Info("requesting passphrase")

	raw, err := b.store.RequestSecret(prompt, id, flags)
	defer secret.Wipe(raw)
	if err != nil {
		if xerrors.Is(err, ErrSecretCancelled) {
			return nil, newGpgError(UserCancelled, b.tr.CancelledError, err)
		}
		if _, ok := ErrorKindOf(err); ok {
			return nil, err
		}
		return nil, newGpgError(SystemError, err.Error(), err)
	}
	if raw == nil {
		return nil, newGpgError(UserCancelled, b.tr.CancelledError, nil)
	}

	converted := raw
	if b.charset != nil {
		encoded, err := b.charset.NewEncoder().Bytes(raw)
		if err != nil {
			// gpg gets the UTF-8 form rather than nothing at all
			b.log.Warn("could not convert passphrase to the locale charset")
		} else {
			converted = encoded
			defer secret.Wipe(encoded)
		}
	}

	terminated := make([]byte, len(converted)+1)
	copy(terminated, converted)
	terminated[len(converted)] = '\n'

	return secret.New(terminated), nil
}

func (b *passphraseBroker) forget(id string) {
	if b == nil || b.store == nil {
		return
	}
	b.store.ForgetSecret(id)
}

func (b *passphraseBroker) cancelledMessage() string {
	if b == nil || b.tr == nil {
		return "Cancelled"
	}
	return b.tr.CancelledError
}
