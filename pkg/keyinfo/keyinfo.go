// Package keyinfo reads OpenPGP key material without involving gpg, so that
// keys can be described before they are imported or after they are exported.
package keyinfo

import (
	"bytes"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-errors/errors"
	"github.com/samber/lo"
)

// Key is what we show about a key
type Key struct {
	Fingerprint string
	KeyID       string
	UserIDs     []string
	Subkeys     int
	Secret      bool
}

// Describe lists the keys found in data, which may be armored or binary
func Describe(data []byte) ([]Key, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		var binaryErr error
		entities, binaryErr = openpgp.ReadKeyRing(bytes.NewReader(data))
		if binaryErr != nil {
			return nil, errors.Errorf("no OpenPGP keys found: %v", binaryErr)
		}
	}
	if len(entities) == 0 {
		return nil, errors.New("no OpenPGP keys found")
	}

	return lo.Map(entities, func(entity *openpgp.Entity, _ int) Key {
		return describeEntity(entity)
	}), nil
}

func describeEntity(entity *openpgp.Entity) Key {
	userIDs := lo.Keys(entity.Identities)
	sort.Strings(userIDs)

	return Key{
		Fingerprint: strings.ToUpper(hex.EncodeToString(entity.PrimaryKey.Fingerprint)),
		KeyID:       entity.PrimaryKey.KeyIdString(),
		UserIDs:     userIDs,
		Subkeys:     len(entity.Subkeys),
		Secret:      entity.PrivateKey != nil,
	}
}

// Kind is "sec" for secret keys and "pub" otherwise, as gpg --list-keys has it
func (k Key) Kind() string {
	if k.Secret {
		return "sec"
	}
	return "pub"
}
