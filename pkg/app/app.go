package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/jesseduffield/lazygpg/pkg/cipher"
	"github.com/jesseduffield/lazygpg/pkg/commands"
	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/jesseduffield/lazygpg/pkg/credentials"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/jesseduffield/lazygpg/pkg/keyinfo"
	"github.com/jesseduffield/lazygpg/pkg/log"
	"github.com/jesseduffield/lazygpg/pkg/secret"
	"github.com/jesseduffield/lazygpg/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// App struct
type App struct {
	closers []io.Closer

	Config     *config.AppConfig
	Log        *logrus.Entry
	OSCommand  *commands.OSCommand
	GpgCommand *commands.GpgCommand
	Store      commands.SecretStore
	Registry   *prometheus.Registry
	Tr         *i18n.TranslationSet
}

// NewApp bootstrap a new application
func NewApp(config *config.AppConfig) (*App, error) {
	app := &App{
		closers:  []io.Closer{},
		Config:   config,
		Registry: prometheus.NewRegistry(),
	}
	var err error
	app.Log = log.NewLogger(config)
	app.Tr, err = i18n.NewTranslationSetFromConfig(app.Log, config.UserConfig.Language)
	if err != nil {
		return app, err
	}

	commands.SetDebug(config.Debug)
	secret.SetInsecure(config.UserConfig.Gpg.InsecureMemory)
	if locked, limitKB := secret.Locked(); !locked {
		app.Log.WithField("memlockKB", limitKB).Warn("passphrases will be held in ordinary memory")
	}

	app.OSCommand = commands.NewOSCommand(app.Log, config)
	app.Store = app.newSecretStore()

	if config.UserConfig.MetricsFile != "" {
		app.closers = append(app.closers, &metricsFile{path: config.UserConfig.MetricsFile, registry: app.Registry})
	}

	app.GpgCommand, err = commands.NewGpgCommand(app.Log, app.OSCommand, app.Tr, config, app.Store, commands.NewMetrics(app.Registry))
	if err != nil {
		return app, err
	}
	return app, nil
}

// newSecretStore picks where passphrases come from: an environment variable if
// one is configured, otherwise the terminal, optionally remembered for the rest
// of the run
func (app *App) newSecretStore() commands.SecretStore {
	passphraseConfig := app.Config.UserConfig.Passphrase

	var store commands.SecretStore
	if passphraseConfig.Env != "" {
		store = credentials.NewEnvStore(app.Log, app.Tr, passphraseConfig.Env)
	} else {
		store = credentials.NewTerminalStore(app.Log, app.Tr)
	}

	if passphraseConfig.Cache {
		cachingStore := credentials.NewCachingStore(app.Log, store)
		app.closers = append(app.closers, closerFunc(func() error {
			cachingStore.Purge()
			return nil
		}))
		return cachingStore
	}
	return store
}

func (app *App) Close() error {
	return utils.CloseMany(app.closers)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type metricsFile struct {
	path     string
	registry *prometheus.Registry
}

func (m *metricsFile) Close() error {
	return prometheus.WriteToTextfile(m.path, m.registry)
}

// Request is one invocation of a subcommand
type Request struct {
	Subcommand  string
	Armor       bool
	Text        bool
	UserID      string
	Recipients  []string
	Digest      string
	SigFile     string
	AlwaysTrust bool
	Offline     bool
	Describe    bool
}

// Run carries out the request, reading the message from in and writing the
// result to out. Verdicts and key summaries go to report.
func (app *App) Run(ctx context.Context, req Request, in io.Reader, out io.Writer, report io.Writer) error {
	if req.Text {
		data, err := io.ReadAll(in)
		if err != nil {
			return commands.WrapError(err)
		}
		in = bytes.NewReader(utils.CanonicalizeCRLF(data))
	}

	gpg := app.GpgCommand
	app.Log.WithField("subcommand", req.Subcommand).Info("running")

	switch req.Subcommand {
	case "sign":
		signature, err := gpg.Sign(ctx, in, cipher.SignOptions{UserID: req.UserID, Digest: req.Digest, Armor: req.Armor})
		if err != nil {
			return err
		}
		return app.write(out, signature)

	case "verify":
		if req.SigFile != "" {
			exists, err := app.OSCommand.FileExists(req.SigFile)
			if err != nil {
				return commands.WrapError(err)
			}
			if !exists {
				return errors.New(app.Tr.MissingSignatureError)
			}
		}
		validity, err := gpg.Verify(ctx, in, cipher.VerifyOptions{SigFile: req.SigFile, Offline: req.Offline})
		if err != nil {
			return err
		}
		fmt.Fprint(report, app.FormatValidity(validity))
		return nil

	case "encrypt":
		if len(req.Recipients) == 0 {
			return errors.New(app.Tr.MissingRecipientError)
		}
		ciphertext, err := gpg.Encrypt(ctx, in, cipher.EncryptOptions{
			UserID:      req.UserID,
			Recipients:  req.Recipients,
			Armor:       req.Armor,
			AlwaysTrust: req.AlwaysTrust,
		})
		if err != nil {
			return err
		}
		return app.write(out, ciphertext)

	case "decrypt":
		result, err := gpg.Decrypt(ctx, in)
		if err != nil {
			return err
		}
		if result.Validity != nil {
			fmt.Fprint(report, app.FormatValidity(result.Validity))
		}
		return app.write(out, result.Plaintext)

	case "import":
		keys, err := io.ReadAll(in)
		if err != nil {
			return commands.WrapError(err)
		}
		if req.Describe {
			app.describeKeys(report, keys)
		}
		return gpg.ImportKeys(ctx, bytes.NewReader(keys))

	case "export":
		keys, err := gpg.ExportKeys(ctx, cipher.ExportOptions{Recipients: req.Recipients, Armor: req.Armor})
		if err != nil {
			return err
		}
		if req.Describe {
			app.describeKeys(report, keys)
		}
		return app.write(out, keys)
	}

	return errors.New(app.Tr.UnknownSubcommandError)
}

func (app *App) write(out io.Writer, data []byte) error {
	app.Log.WithField("size", utils.FormatBinaryBytes(len(data))).Info("writing result")
	_, err := out.Write(data)
	return commands.WrapError(err)
}

func (app *App) describeKeys(report io.Writer, data []byte) {
	keys, err := keyinfo.Describe(data)
	if err != nil {
		// gpg gets the final say on whether this is key material
		app.Log.WithError(err).Warn("could not describe keys")
		return
	}

	rows := [][]string{}
	for _, key := range keys {
		for i, userID := range key.UserIDs {
			kind, keyID := key.Kind(), key.KeyID
			if i > 0 {
				kind, keyID = "", ""
			}
			rows = append(rows, []string{kind, keyID, userID})
		}
	}
	table, err := utils.RenderTable(rows)
	if err != nil {
		app.Log.Error(err)
		return
	}
	if table != "" {
		fmt.Fprintln(report, table)
	}
	fmt.Fprintf(report, "%d %s\n", len(keys), app.Tr.KeyCount)
}

// FormatValidity renders a verdict for the terminal
func (app *App) FormatValidity(validity *cipher.Validity) string {
	var headline string
	switch validity.Status {
	case cipher.StatusGood:
		headline = utils.ColoredString(app.Tr.SignatureGood, color.FgGreen)
	case cipher.StatusUnknown:
		headline = utils.ColoredString(app.Tr.SignatureUnknown, color.FgYellow)
	case cipher.StatusNeedPublicKey:
		headline = utils.ColoredString(app.Tr.SignatureNeedPublicKey, color.FgYellow)
	case cipher.StatusBad:
		headline = utils.ColoredString(app.Tr.SignatureBad, color.FgRed)
	default:
		headline = app.Tr.SignatureNone
	}

	details := map[string]string{}
	if validity.Signer != "" {
		details[app.Tr.SignedBy] = validity.Signer
	}
	if validity.Fingerprint != "" {
		details[app.Tr.Fingerprint] = fmt.Sprintf("%s (%s)", validity.Fingerprint, utils.ShortFingerprint(validity.Fingerprint))
	}
	if validity.Status != cipher.StatusNeedPublicKey && validity.Trust != cipher.TrustNone {
		details["trust"] = validity.Trust.String()
	}

	output := headline + "\n"
	if len(details) > 0 {
		output += strings.TrimPrefix(utils.FormatMap(2, details), "\n")
	}
	if validity.Status != cipher.StatusGood {
		// gpg's own words on what went wrong
		for _, line := range utils.SplitLines(validity.Description) {
			output += "  " + line + "\n"
		}
	}
	return output
}

type errorMapping struct {
	originalError string
	newError      string
}

// KnownError takes an error and tells us whether it's an error that we know about where we can print a nicely formatted version of it rather than panicking with a stack trace
func (app *App) KnownError(err error) (string, bool) {
	var gpgErr commands.GpgError
	if xerrors.As(err, &gpgErr) {
		return gpgErr.Message, true
	}

	errorMessage := err.Error()

	mappings := []errorMapping{
		{
			originalError: "executable file not found in $PATH",
			newError:      app.Tr.GpgNotFoundError,
		},
		{
			originalError: app.Tr.MissingRecipientError,
			newError:      app.Tr.MissingRecipientError,
		},
		{
			originalError: app.Tr.MissingSignatureError,
			newError:      app.Tr.MissingSignatureError,
		},
		{
			originalError: app.Tr.UnknownSubcommandError,
			newError:      app.Tr.UnknownSubcommandError,
		},
	}

	for _, mapping := range mappings {
		if strings.Contains(errorMessage, mapping.originalError) {
			return mapping.newError, true
		}
	}

	return "", false
}
