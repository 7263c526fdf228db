package commands

import (
	"strings"
	"testing"

	"github.com/jesseduffield/lazygpg/pkg/cipher"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession returns a session with no gpg behind it, for feeding status
// lines to directly
func newTestSession(mode gpgMode, store SecretStore) *gpgSession {
	log := NewDummyLog()
	tr := i18n.NewTranslationSet(log, "en")
	session := newSession(log, tr, mode, gpgOptions{})
	session.broker = &passphraseBroker{log: log, tr: tr, store: store}
	if mode.needsPassphrase() {
		// never written to: these tests only look at the pending secret
		session.passwdFD = 1 << 20
	}
	return session
}

func statusLines(lines ...string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(statusPrefix + line + "\n")
	}
	return b.String()
}

func TestFeedStatusIgnoresChunking(t *testing.T) {
	stream := statusLines(
		"NEWSIG",
		"GOODSIG "+fakeKeyID+" "+fakeUserID,
		"VALIDSIG ABCDEF0123",
		"TRUST_MARGINAL 0 pgp",
	)

	whole := newTestSession(modeVerify, nil)
	require.NoError(t, whole.feedStatus([]byte(stream)))

	for _, chunkSize := range []int{1, 2, 7, 16, 100} {
		session := newTestSession(modeVerify, nil)
		for start := 0; start < len(stream); start += chunkSize {
			end := min(start+chunkSize, len(stream))
			require.NoError(t, session.feedStatus([]byte(stream[start:end])))
		}

		assert.Equal(t, whole.validity(), session.validity(), "chunk size %d", chunkSize)
		assert.Empty(t, session.statusBuf)
	}
}

func TestFeedStatusKeepsPartialLine(t *testing.T) {
	session := newTestSession(modeVerify, nil)

	require.NoError(t, session.feedStatus([]byte(statusPrefix+"GOODSIG "+fakeKeyID)))
	assert.False(t, session.goodSig)

	require.NoError(t, session.feedStatus([]byte(" "+fakeUserID+"\n")))
	assert.True(t, session.goodSig)
	assert.Equal(t, fakeUserID, session.signer)
}

func TestFlushStatus(t *testing.T) {
	session := newTestSession(modeVerify, nil)

	require.NoError(t, session.feedStatus([]byte(statusPrefix+"NO_PUBKEY "+fakeKeyID)))
	assert.False(t, session.noPubKey)

	require.NoError(t, session.flushStatus())
	assert.True(t, session.noPubKey)
	assert.Empty(t, session.statusBuf)

	// nothing left over
	assert.NoError(t, session.flushStatus())
}

func TestFeedStatusRejects(t *testing.T) {
	type scenario struct {
		name     string
		data     string
		expected string
	}

	scenarios := []scenario{
		{
			name:     "line without the status prefix",
			data:     "gpg: this belongs on stderr\n",
			expected: "Unexpected GnuPG status message",
		},
		{
			name:     "line with a truncated prefix",
			data:     "[GNUPG:]GOODSIG\n",
			expected: "Unexpected GnuPG status message",
		},
		{
			name:     "line that never ends",
			data:     statusPrefix + strings.Repeat("x", maxStatusLineLength+1),
			expected: "GnuPG status line exceeds the maximum length",
		},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			session := newTestSession(modeVerify, nil)

			err := session.feedStatus([]byte(s.data))
			assert.True(t, HasErrorKind(err, ProtocolError), err)
			assert.EqualError(t, err, s.expected)
		})
	}
}

func TestProcessStatusLineUserIDHint(t *testing.T) {
	session := newTestSession(modeSign, &fakeSecretStore{answers: []string{"secret"}})

	require.NoError(t, session.feedStatus([]byte(statusLines(
		"USERID_HINT "+fakeKeyID+" "+fakeUserID,
		"USERID_HINT "+fakeKeyID+" Mallory <mallory@example.com>",
		"NEED_PASSPHRASE "+fakeKeyID+" "+fakeKeyID+" 1 0",
	))))

	assert.Equal(t, fakeUserID, session.userIDHints[fakeKeyID])
	assert.Equal(t, fakeKeyID, session.needID)
}

func TestProcessStatusLinePassphrasePrompts(t *testing.T) {
	type scenario struct {
		name     string
		lines    []string
		expected string
	}

	scenarios := []scenario{
		{
			name: "passphrase with a user id hint",
			lines: []string{
				"USERID_HINT " + fakeKeyID + " " + fakeUserID,
				"NEED_PASSPHRASE " + fakeKeyID + " " + fakeKeyID + " 1 0",
				"GET_HIDDEN passphrase.enter",
			},
			expected: "You need a passphrase to unlock the key for\nuser: \"" + fakeUserID + "\"",
		},
		{
			name: "passphrase without a hint falls back to the key id",
			lines: []string{
				"NEED_PASSPHRASE " + fakeKeyID + " " + fakeKeyID + " 1 0",
				"GET_HIDDEN passphrase.enter",
			},
			expected: "You need a passphrase to unlock the key for\nuser: \"" + fakeKeyID + "\"",
		},
		{
			name: "smartcard pin",
			lines: []string{
				"USERID_HINT " + fakeKeyID + " " + fakeUserID,
				"NEED_PASSPHRASE_PIN OPENPGP 1 " + fakeKeyID,
				"GET_HIDDEN passphrase.pin.ask",
			},
			expected: "You need a PIN to unlock the key for your\nSmartCard: \"OPENPGP\"",
		},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			store := &fakeSecretStore{answers: []string{"secret"}}
			session := newTestSession(modeSign, store)
			defer session.clearPendingSecret()

			require.NoError(t, session.feedStatus([]byte(statusLines(s.lines...))))

			require.Len(t, store.requests, 1)
			assert.Equal(t, s.expected, store.requests[0].prompt)
			require.NotNil(t, session.pendingSecret)
			assert.Equal(t, "secret\n", string(session.pendingSecret.Bytes()))
			assertWiped(t, store.handedOut)
		})
	}
}

func TestProcessStatusLineUnknownHiddenRequest(t *testing.T) {
	store := &fakeSecretStore{answers: []string{"secret"}}
	session := newTestSession(modeSign, store)

	err := session.feedStatus([]byte(statusLines("GET_HIDDEN keyedit.passwd")))

	assert.True(t, HasErrorKind(err, SystemError), err)
	assert.EqualError(t, err, "Unexpected request from GnuPG for 'keyedit.passwd'")
	assert.Empty(t, store.requests)
}

func TestProcessStatusLineHiddenRequestWithoutCommandFD(t *testing.T) {
	store := &fakeSecretStore{answers: []string{"secret"}}
	session := newTestSession(modeImport, store)

	err := session.feedStatus([]byte(statusLines("GET_HIDDEN passphrase.enter")))

	assert.True(t, HasErrorKind(err, SystemError), err)
	assert.Empty(t, store.requests)
}

func TestProcessStatusLineBadPassphrases(t *testing.T) {
	store := &fakeSecretStore{answers: []string{"a", "b", "c", "d"}}
	session := newTestSession(modeSign, store)
	defer session.clearPendingSecret()

	attempt := statusLines(
		"NEED_PASSPHRASE "+fakeKeyID+" "+fakeKeyID+" 1 0",
		"GET_HIDDEN passphrase.enter",
	)
	bad := statusLines("BAD_PASSPHRASE " + fakeKeyID)

	require.NoError(t, session.feedStatus([]byte(attempt)))
	require.NoError(t, session.feedStatus([]byte(bad)))
	require.NoError(t, session.feedStatus([]byte(attempt)))
	require.NoError(t, session.feedStatus([]byte(bad)))
	require.NoError(t, session.feedStatus([]byte(attempt)))

	err := session.feedStatus([]byte(bad))
	assert.True(t, HasErrorKind(err, CantAuthenticate), err)

	// and no further requests are made
	err = session.feedStatus([]byte(attempt))
	assert.True(t, HasErrorKind(err, CantAuthenticate), err)
	assert.Len(t, store.requests, 3)
	assert.Equal(t, []string{fakeKeyID, fakeKeyID, fakeKeyID}, store.forgotten)
}

func TestBadPassphraseCountStaysAtLimit(t *testing.T) {
	store := &fakeSecretStore{}
	session := newTestSession(modeDecrypt, store)

	err := session.feedStatus([]byte(statusLines(
		"BAD_PASSPHRASE "+fakeKeyID,
		"BAD_PASSPHRASE "+fakeKeyID,
		"BAD_PASSPHRASE "+fakeKeyID,
	)))
	assert.True(t, HasErrorKind(err, CantAuthenticate), err)
	assert.Empty(t, session.statusBuf)

	// lines already handled are not dispatched again
	assert.NoError(t, session.feedStatus([]byte(statusLines("NODATA 1"))))
	assert.True(t, session.noData)
	assert.Equal(t, maxBadPassphrases, session.badPassphrases)
	assert.Len(t, store.forgotten, maxBadPassphrases)

	err = session.feedStatus([]byte(statusLines("BAD_PASSPHRASE " + fakeKeyID)))
	assert.True(t, HasErrorKind(err, CantAuthenticate), err)
	assert.Equal(t, maxBadPassphrases, session.badPassphrases)
	assert.Len(t, store.forgotten, maxBadPassphrases)
}

func TestFeedStatusDropsLinesBeforeAFailure(t *testing.T) {
	session := newTestSession(modeImport, nil)

	err := session.feedStatus([]byte(statusLines("IMPORT_OK 1 ABCDEF", "UNEXPECTED 0") + statusPrefix + "IMPORT_"))
	assert.True(t, HasErrorKind(err, SystemError), err)
	assert.Equal(t, statusPrefix+"IMPORT_", string(session.statusBuf))
}

func TestProcessStatusLineGoodPassphraseResetsCount(t *testing.T) {
	session := newTestSession(modeDecrypt, &fakeSecretStore{})

	require.NoError(t, session.feedStatus([]byte(statusLines(
		"BAD_PASSPHRASE "+fakeKeyID,
		"BAD_PASSPHRASE "+fakeKeyID,
		"GOOD_PASSPHRASE",
		"BAD_PASSPHRASE "+fakeKeyID,
	))))
	assert.Equal(t, 1, session.badPassphrases)
}

func TestProcessStatusLineUnexpected(t *testing.T) {
	session := newTestSession(modeImport, nil)

	err := session.feedStatus([]byte(statusLines("UNEXPECTED 0")))
	assert.True(t, HasErrorKind(err, SystemError), err)
}

func TestProcessStatusLineNoRecipients(t *testing.T) {
	type scenario struct {
		mode      gpgMode
		expectErr bool
	}

	scenarios := []scenario{
		{mode: modeEncrypt, expectErr: true},
		{mode: modeVerify, expectErr: false},
		{mode: modeDecrypt, expectErr: false},
		{mode: modeImport, expectErr: false},
	}

	for _, s := range scenarios {
		t.Run(s.mode.String(), func(t *testing.T) {
			session := newTestSession(s.mode, nil)

			err := session.feedStatus([]byte(statusLines("NO_RECP 0")))
			if s.expectErr {
				assert.EqualError(t, err, "No valid recipients specified")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessStatusLineNoData(t *testing.T) {
	session := newTestSession(modeVerify, nil)

	require.NoError(t, session.feedStatus([]byte(statusLines("NODATA 1"))))
	assert.True(t, session.noData)
	assert.Equal(t, cipher.StatusBad, session.validity().Status)
}

func TestSignatureVerdict(t *testing.T) {
	type scenario struct {
		name           string
		lines          []string
		expectedStatus cipher.SignatureStatus
		expectedTrust  cipher.TrustLevel
	}

	scenarios := []scenario{
		{
			name:           "valid, fully trusted",
			lines:          []string{"GOODSIG K A", "VALIDSIG F", "TRUST_FULLY 0 pgp"},
			expectedStatus: cipher.StatusGood,
			expectedTrust:  cipher.TrustFully,
		},
		{
			name:           "valid, marginally trusted",
			lines:          []string{"GOODSIG K A", "VALIDSIG F", "TRUST_MARGINAL 0 pgp"},
			expectedStatus: cipher.StatusGood,
			expectedTrust:  cipher.TrustMarginal,
		},
		{
			name:           "valid, no trust information",
			lines:          []string{"GOODSIG K A", "VALIDSIG F"},
			expectedStatus: cipher.StatusUnknown,
			expectedTrust:  cipher.TrustNone,
		},
		{
			name:           "valid, trust undefined",
			lines:          []string{"GOODSIG K A", "VALIDSIG F", "TRUST_UNDEFINED 0 pgp"},
			expectedStatus: cipher.StatusUnknown,
			expectedTrust:  cipher.TrustUndefined,
		},
		{
			name:           "valid, never trusted",
			lines:          []string{"GOODSIG K A", "VALIDSIG F", "TRUST_NEVER 0 pgp"},
			expectedStatus: cipher.StatusBad,
			expectedTrust:  cipher.TrustNever,
		},
		{
			name:           "good but never validated",
			lines:          []string{"GOODSIG K A", "TRUST_ULTIMATE 0 pgp"},
			expectedStatus: cipher.StatusBad,
			expectedTrust:  cipher.TrustUltimate,
		},
		{
			name:           "missing public key",
			lines:          []string{"ERRSIG K 1 10 00 0 9 -", "NO_PUBKEY K"},
			expectedStatus: cipher.StatusNeedPublicKey,
			expectedTrust:  cipher.TrustNone,
		},
		{
			name:           "bad signature",
			lines:          []string{"BADSIG K A"},
			expectedStatus: cipher.StatusBad,
			expectedTrust:  cipher.TrustNone,
		},
		{
			name:           "nothing at all",
			lines:          []string{},
			expectedStatus: cipher.StatusBad,
			expectedTrust:  cipher.TrustNone,
		},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			session := newTestSession(modeVerify, nil)

			require.NoError(t, session.feedStatus([]byte(statusLines(s.lines...))))
			validity := session.validity()
			assert.Equal(t, s.expectedStatus, validity.Status)
			assert.Equal(t, s.expectedTrust, validity.Trust)
		})
	}
}

func TestSignatureStatusIgnoredOutsideSignatureModes(t *testing.T) {
	session := newTestSession(modeEncrypt, nil)

	require.NoError(t, session.feedStatus([]byte(statusLines("GOODSIG K A", "VALIDSIG F"))))
	assert.False(t, session.hadSig)
	assert.False(t, session.validSig)
}
