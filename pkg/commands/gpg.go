package commands

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/imdario/mergo"
	"github.com/jesseduffield/lazygpg/pkg/cipher"
	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/jesseduffield/lazygpg/pkg/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
)

// GpgCommand performs OpenPGP operations by running gpg. Each call runs its
// own gpg process on the calling goroutine; calls may run concurrently.
type GpgCommand struct {
	Log       *logrus.Entry
	OSCommand *OSCommand
	Tr        *i18n.TranslationSet
	Config    *config.AppConfig
	Store     SecretStore
	Metrics   *Metrics
	charset   encoding.Encoding
}

var _ cipher.Context = &GpgCommand{}

// NewGpgCommand it runs gpg commands
func NewGpgCommand(log *logrus.Entry, osCommand *OSCommand, tr *i18n.TranslationSet, config *config.AppConfig, store SecretStore, metrics *Metrics) (*GpgCommand, error) {
	charsetName := config.UserConfig.Gpg.Charset
	if charsetName == "" {
		charsetName = i18n.DetectCharset(osCommand.Getenv)
	}
	charset, err := i18n.LookupEncoding(charsetName)
	if err != nil {
		return nil, err
	}
	log.WithField("charset", charsetName).Info("using charset")

	return &GpgCommand{
		Log:       log,
		OSCommand: osCommand,
		Tr:        tr,
		Config:    config,
		Store:     store,
		Metrics:   metrics,
		charset:   charset,
	}, nil
}

// mergeOptions lays per-call options over the defaults from the user's config
func (c *GpgCommand) mergeOptions(opts gpgOptions) gpgOptions {
	gpgConfig := c.Config.UserConfig.Gpg
	merged := gpgOptions{
		Armor:       gpgConfig.Armor,
		AlwaysTrust: gpgConfig.AlwaysTrust,
		Offline:     gpgConfig.Offline,
		Digest:      gpgConfig.DigestAlgo,
	}
	if err := mergo.Merge(&merged, opts, mergo.WithOverride); err != nil {
		c.Log.Error(err)
		return opts
	}
	return merged
}

// run drives one gpg process from spawn to exit. The session it returns has
// already been torn down but still holds the output, diagnostics and status
// flags gathered along the way.
func (c *GpgCommand) run(ctx context.Context, mode gpgMode, opts gpgOptions, input io.Reader, output io.Writer) (*gpgSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, newGpgError(UserCancelled, c.Tr.CancelledError, err)
	}

	control, err := ControlFromContext(ctx)
	if err != nil {
		return nil, newGpgError(SystemError, err.Error(), err)
	}
	defer control.Close()

	session, err := c.spawn(mode, opts, input, output)
	if err != nil {
		c.Log.WithError(err).Error("could not start gpg")
		return nil, err
	}
	defer session.close()

	for {
		complete, err := session.step(control)
		if err != nil {
			session.log.WithError(err).Warn("gpg operation failed")
			return nil, err
		}
		if complete {
			break
		}
	}

	session.exitStatus, err = session.reaper.wait()
	if err != nil {
		return nil, err
	}
	session.log.WithField("exitStatus", session.exitStatus).Info("gpg exited")

	return session, nil
}

func (c *GpgCommand) observe(mode gpgMode, started time.Time, err error) {
	c.Metrics.observe(mode, err, time.Since(started))
}

// Sign makes a detached signature of the input
func (c *GpgCommand) Sign(ctx context.Context, in io.Reader, opts cipher.SignOptions) (signature []byte, err error) {
	defer func(started time.Time) { c.observe(modeSign, started, err) }(time.Now())

	var out bytes.Buffer
	session, err := c.run(ctx, modeSign, c.mergeOptions(gpgOptions{
		UserID: opts.UserID,
		Digest: opts.Digest,
		Armor:  opts.Armor,
	}), in, &out)
	if err != nil {
		return nil, err
	}
	if err := session.exitError(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Verify checks the input against a detached signature, or checks an inline
// signed input when no signature is given. gpg failing is not an error here:
// the verdict says what went wrong.
func (c *GpgCommand) Verify(ctx context.Context, in io.Reader, opts cipher.VerifyOptions) (validity *cipher.Validity, err error) {
	defer func(started time.Time) { c.observe(modeVerify, started, err) }(time.Now())

	sigFile := opts.SigFile
	if sigFile == "" && len(opts.Signature) > 0 {
		sigFile, err = c.OSCommand.CreateTempFile("lazygpg-signature", opts.Signature)
		if err != nil {
			return nil, newGpgError(SystemError, err.Error(), err)
		}
		defer func() {
			if err := c.OSCommand.Remove(sigFile); err != nil {
				c.Log.Error(err)
			}
		}()
	}

	session, err := c.run(ctx, modeVerify, c.mergeOptions(gpgOptions{
		SigFile: sigFile,
		Offline: opts.Offline,
	}), in, io.Discard)
	if err != nil {
		return nil, err
	}
	return session.validity(), nil
}

// Encrypt encrypts the input to the given recipients
func (c *GpgCommand) Encrypt(ctx context.Context, in io.Reader, opts cipher.EncryptOptions) (ciphertext []byte, err error) {
	defer func(started time.Time) { c.observe(modeEncrypt, started, err) }(time.Now())

	var out bytes.Buffer
	session, err := c.run(ctx, modeEncrypt, c.mergeOptions(gpgOptions{
		UserID:      opts.UserID,
		Recipients:  opts.Recipients,
		Armor:       opts.Armor,
		AlwaysTrust: opts.AlwaysTrust,
	}), in, &out)
	if err != nil {
		return nil, err
	}
	if err := session.exitError(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decrypt decrypts the input. If it was signed as well, the result carries
// the signature's verdict.
func (c *GpgCommand) Decrypt(ctx context.Context, in io.Reader) (result *cipher.DecryptResult, err error) {
	defer func(started time.Time) { c.observe(modeDecrypt, started, err) }(time.Now())

	var out bytes.Buffer
	session, err := c.run(ctx, modeDecrypt, c.mergeOptions(gpgOptions{}), in, &out)
	if err != nil {
		return nil, err
	}
	if err := session.exitError(); err != nil {
		return nil, err
	}

	result = &cipher.DecryptResult{Plaintext: out.Bytes()}
	if session.hadSig {
		result.Validity = session.validity()
	}
	return result, nil
}

// ImportKeys adds the keys in the input to the keyring
func (c *GpgCommand) ImportKeys(ctx context.Context, in io.Reader) (err error) {
	defer func(started time.Time) { c.observe(modeImport, started, err) }(time.Now())

	session, err := c.run(ctx, modeImport, c.mergeOptions(gpgOptions{}), in, io.Discard)
	if err != nil {
		return err
	}
	return session.exitError()
}

// ExportKeys exports the public keys of the given recipients, or every public
// key when there are none
func (c *GpgCommand) ExportKeys(ctx context.Context, opts cipher.ExportOptions) (keys []byte, err error) {
	defer func(started time.Time) { c.observe(modeExport, started, err) }(time.Now())

	var out bytes.Buffer
	session, err := c.run(ctx, modeExport, c.mergeOptions(gpgOptions{
		Recipients: opts.Recipients,
		Armor:      opts.Armor,
	}), nil, &out)
	if err != nil {
		return nil, err
	}
	if err := session.exitError(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
