package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/fatih/color"
	"github.com/jesseduffield/lazygpg/pkg/cipher"
	"github.com/jesseduffield/lazygpg/pkg/commands"
	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/jesseduffield/lazygpg/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppConfig(t *testing.T) *config.AppConfig {
	t.Setenv("CONFIG_DIR", t.TempDir())

	appConfig, err := config.NewAppConfig("lazygpg", "test-version", "test-commit", "test-date", "test-build-source", false)
	require.NoError(t, err)
	appConfig.UserConfig.Language = "en"
	appConfig.UserConfig.Gpg.Charset = "UTF-8"
	return appConfig
}

// writeFakeGpg writes a shell script standing in for gpg and points the
// config at it
func writeFakeGpg(t *testing.T, appConfig *config.AppConfig, script string) {
	path := filepath.Join(t.TempDir(), "gpg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	appConfig.UserConfig.Gpg.Path = path
}

func TestNewAppInitializesFields(t *testing.T) {
	app, err := NewApp(newTestAppConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Config)
	assert.NotNil(t, app.Log)
	assert.NotNil(t, app.OSCommand)
	assert.NotNil(t, app.GpgCommand)
	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Tr)
}

func TestNewAppSecretStore(t *testing.T) {
	type scenario struct {
		name       string
		passphrase config.PassphraseConfig
		test       func(*testing.T, commands.SecretStore)
	}

	scenarios := []scenario{
		{
			name:       "terminal by default",
			passphrase: config.PassphraseConfig{},
			test: func(t *testing.T, store commands.SecretStore) {
				assert.IsType(t, &credentials.TerminalStore{}, store)
			},
		},
		{
			name:       "environment variable",
			passphrase: config.PassphraseConfig{Env: "LAZYGPG_PASSPHRASE"},
			test: func(t *testing.T, store commands.SecretStore) {
				assert.IsType(t, &credentials.EnvStore{}, store)
			},
		},
		{
			name:       "cached",
			passphrase: config.PassphraseConfig{Cache: true},
			test: func(t *testing.T, store commands.SecretStore) {
				assert.IsType(t, &credentials.CachingStore{}, store)
			},
		},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			appConfig := newTestAppConfig(t)
			appConfig.UserConfig.Passphrase = s.passphrase

			app, err := NewApp(appConfig)
			require.NoError(t, err)
			defer app.Close()

			s.test(t, app.Store)
			assert.Equal(t, app.Store, app.GpgCommand.Store)
		})
	}
}

func TestNewAppRejectsUnknownCharset(t *testing.T) {
	appConfig := newTestAppConfig(t)
	appConfig.UserConfig.Gpg.Charset = "no-such-charset"

	_, err := NewApp(appConfig)
	assert.Error(t, err)
}

func TestAppRun(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	type scenario struct {
		name    string
		script  string
		request Request
		input   string
		test    func(t *testing.T, out string, report string, err error)
	}

	scenarios := []scenario{
		{
			name:    "export",
			script:  `printf 'exported keys'`,
			request: Request{Subcommand: "export"},
			test: func(t *testing.T, out string, report string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "exported keys", out)
				assert.Empty(t, report)
			},
		},
		{
			name:    "import",
			script:  `cat > /dev/null`,
			request: Request{Subcommand: "import"},
			input:   "key material",
			test: func(t *testing.T, out string, report string, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "verify",
			script: strings.Join([]string{
				`cat > /dev/null`,
				`echo "[GNUPG:] GOODSIG 0123456789ABCDEF Alice <alice@example.com>" >&3`,
				`echo "[GNUPG:] VALIDSIG 4F1D2E3C4B5A697887960FEDCBA987654321 2024-01-01" >&3`,
				`echo "[GNUPG:] TRUST_FULLY 0 pgp" >&3`,
			}, "\n"),
			request: Request{Subcommand: "verify"},
			input:   "signed text",
			test: func(t *testing.T, out string, report string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "good signature\n  fingerprint: 4F1D2E3C4B5A697887960FEDCBA987654321 (0FEDCBA987654321)\n  signed by: Alice <alice@example.com>\n  trust: full\n", report)
			},
		},
		{
			name:    "sign in text mode",
			script:  `cat`,
			request: Request{Subcommand: "sign", Text: true},
			input:   "line one\nline two\n",
			test: func(t *testing.T, out string, report string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "line one\r\nline two\r\n", out)
			},
		},
		{
			name:    "gpg failing",
			script:  `cat > /dev/null; echo "gpg: decryption failed: No secret key" >&2; exit 2`,
			request: Request{Subcommand: "decrypt"},
			input:   "ciphertext",
			test: func(t *testing.T, out string, report string, err error) {
				assert.EqualError(t, err, "gpg: decryption failed: No secret key")
				assert.Empty(t, out)
			},
		},
		{
			name:    "encrypt without recipients",
			script:  `exit 0`,
			request: Request{Subcommand: "encrypt"},
			test: func(t *testing.T, out string, report string, err error) {
				assert.EqualError(t, err, "At least one recipient is required")
			},
		},
		{
			name:    "verify with a missing signature file",
			script:  `echo "gpg should not have been run" >&2; exit 2`,
			request: Request{Subcommand: "verify", SigFile: "/nonexistent/message.sig"},
			input:   "signed text",
			test: func(t *testing.T, out string, report string, err error) {
				assert.EqualError(t, err, "The detached signature file does not exist")
				assert.Empty(t, report)
			},
		},
		{
			name:    "unknown subcommand",
			script:  `exit 0`,
			request: Request{Subcommand: "frobnicate"},
			test: func(t *testing.T, out string, report string, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			appConfig := newTestAppConfig(t)
			writeFakeGpg(t, appConfig, s.script)

			app, err := NewApp(appConfig)
			require.NoError(t, err)
			defer app.Close()

			var out, report bytes.Buffer
			err = app.Run(context.Background(), s.request, strings.NewReader(s.input), &out, &report)
			s.test(t, out.String(), report.String(), err)
		})
	}
}

func TestAppRunDescribesImportedKeys(t *testing.T) {
	entity, err := openpgp.NewEntity("Alice", "", "alice@example.com", nil)
	require.NoError(t, err)
	var keys bytes.Buffer
	require.NoError(t, entity.Serialize(&keys))

	appConfig := newTestAppConfig(t)
	writeFakeGpg(t, appConfig, `cat > /dev/null`)

	app, err := NewApp(appConfig)
	require.NoError(t, err)
	defer app.Close()

	var out, report bytes.Buffer
	err = app.Run(context.Background(), Request{Subcommand: "import", Describe: true}, &keys, &out, &report)
	require.NoError(t, err)
	assert.Equal(t, "pub "+entity.PrimaryKey.KeyIdString()+" Alice <alice@example.com>\n1 keys\n", report.String())
}

func TestAppWritesMetricsFileOnClose(t *testing.T) {
	appConfig := newTestAppConfig(t)
	writeFakeGpg(t, appConfig, `printf 'exported keys'`)
	metricsPath := filepath.Join(t.TempDir(), "lazygpg.prom")
	appConfig.UserConfig.MetricsFile = metricsPath

	app, err := NewApp(appConfig)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, app.Run(context.Background(), Request{Subcommand: "export"}, strings.NewReader(""), &out, &out))
	require.NoError(t, app.Close())

	content, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `lazygpg_operations_total{mode="export",outcome="ok"} 1`)
}

func TestFormatValidity(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	app, err := NewApp(newTestAppConfig(t))
	require.NoError(t, err)
	defer app.Close()

	type scenario struct {
		validity *cipher.Validity
		expected string
	}

	scenarios := []scenario{
		{
			validity: &cipher.Validity{Status: cipher.StatusBad, Signer: "Mallory"},
			expected: "bad signature\n  signed by: Mallory\n",
		},
		{
			validity: &cipher.Validity{Status: cipher.StatusNeedPublicKey},
			expected: "cannot verify signature: public key not found\n",
		},
		{
			validity: &cipher.Validity{Status: cipher.StatusUnknown, Trust: cipher.TrustUndefined},
			expected: "valid signature from an untrusted key\n  trust: undefined\n",
		},
		{
			validity: &cipher.Validity{Status: cipher.StatusNone},
			expected: "not signed\n",
		},
	}

	for _, s := range scenarios {
		assert.Equal(t, s.expected, app.FormatValidity(s.validity))
	}
}

// mockError is a simple error implementation for testing
type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

func TestAppKnownErrorHandling(t *testing.T) {
	app, err := NewApp(newTestAppConfig(t))
	require.NoError(t, err)
	defer app.Close()

	tests := []struct {
		name         string
		err          error
		expectKnown  bool
		expectedText string
	}{
		{
			name:         "gpg not on the path",
			err:          &mockError{message: `exec: "gpg": executable file not found in $PATH`},
			expectKnown:  true,
			expectedText: app.Tr.GpgNotFoundError,
		},
		{
			name:         "missing recipient",
			err:          &mockError{message: app.Tr.MissingRecipientError},
			expectKnown:  true,
			expectedText: app.Tr.MissingRecipientError,
		},
		{
			name:         "missing signature file",
			err:          &mockError{message: app.Tr.MissingSignatureError},
			expectKnown:  true,
			expectedText: app.Tr.MissingSignatureError,
		},
		{
			name:        "unknown error",
			err:         &mockError{message: "some unknown error message"},
			expectKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, known := app.KnownError(tt.err)

			assert.Equal(t, tt.expectKnown, known)
			if tt.expectKnown {
				assert.Equal(t, tt.expectedText, text)
			} else {
				assert.Empty(t, text)
			}
		})
	}
}

func TestAppKnownErrorForGpgErrors(t *testing.T) {
	appConfig := newTestAppConfig(t)
	appConfig.UserConfig.Gpg.Path = "/nonexistent/gpg"

	app, err := NewApp(appConfig)
	require.NoError(t, err)
	defer app.Close()

	err = app.Run(context.Background(), Request{Subcommand: "export"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	text, known := app.KnownError(err)
	assert.True(t, known)
	assert.Equal(t, app.Tr.GpgNotFoundError, text)
}
