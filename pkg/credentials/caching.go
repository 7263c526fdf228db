package credentials

import (
	"github.com/jesseduffield/lazygpg/pkg/commands"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// CachingStore remembers the secrets another store hands out, keyed by the id
// they were asked for, until they are forgotten. Safe for concurrent use.
type CachingStore struct {
	Log   *logrus.Entry
	store commands.SecretStore

	mutex deadlock.Mutex
	cache map[string]secret.Buffer
}

var _ commands.SecretStore = &CachingStore{}

func NewCachingStore(log *logrus.Entry, store commands.SecretStore) *CachingStore {
	return &CachingStore{
		Log:   log,
		store: store,
		cache: map[string]secret.Buffer{},
	}
}

func (s *CachingStore) RequestSecret(prompt string, id string, flags commands.SecretFlags) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if cached, ok := s.cache[id]; ok && !flags.Has(commands.SecretFlagReprompt) {
		s.Log.WithField("keyID", id).Debug("using cached passphrase")
		answer := make([]byte, cached.Len())
		copy(answer, cached.Bytes())
		return answer, nil
	}

	answer, err := s.store.RequestSecret(prompt, id, flags)
	if err != nil {
		return nil, err
	}

	kept := make([]byte, len(answer))
	copy(kept, answer)
	s.forget(id)
	s.cache[id] = secret.New(kept)

	return answer, nil
}

func (s *CachingStore) ForgetSecret(id string) {
	s.mutex.Lock()
	s.forget(id)
	s.mutex.Unlock()

	s.store.ForgetSecret(id)
}

// Purge forgets everything
func (s *CachingStore) Purge() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id := range s.cache {
		s.forget(id)
	}
}

func (s *CachingStore) forget(id string) {
	if cached, ok := s.cache[id]; ok {
		cached.Destroy()
		delete(s.cache, id)
	}
}
