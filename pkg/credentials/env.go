package credentials

import (
	"fmt"
	"os"

	"github.com/jesseduffield/lazygpg/pkg/commands"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// EnvStore hands out the passphrase found in an environment variable, for
// running unattended
type EnvStore struct {
	Log  *logrus.Entry
	Tr   *i18n.TranslationSet
	Name string

	lookupEnv func(string) (string, bool)
}

var _ commands.SecretStore = &EnvStore{}

func NewEnvStore(log *logrus.Entry, tr *i18n.TranslationSet, name string) *EnvStore {
	return &EnvStore{
		Log:       log,
		Tr:        tr,
		Name:      name,
		lookupEnv: os.LookupEnv,
	}
}

// RequestSecret returns the variable's value. There is no point offering the
// same value twice, so a reprompt is declined.
func (s *EnvStore) RequestSecret(prompt string, id string, flags commands.SecretFlags) ([]byte, error) {
	if flags.Has(commands.SecretFlagReprompt) {
		s.Log.WithField("variable", s.Name).Warn("passphrase from the environment was rejected")
		return nil, commands.ErrSecretCancelled
	}

	value, ok := s.lookupEnv(s.Name)
	if !ok {
		return nil, xerrors.New(fmt.Sprintf(s.Tr.NoEnvPassphraseError, s.Name))
	}
	return []byte(value), nil
}

func (s *EnvStore) ForgetSecret(id string) {}
