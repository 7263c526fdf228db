// Package cipher describes what a mail client can ask of an OpenPGP backend,
// independently of how the backend does it.
package cipher

import (
	"context"
	"io"
)

// Context is implemented by each cipher backend. Inputs are canonical byte
// streams as produced by the message codec.
type Context interface {
	Sign(ctx context.Context, in io.Reader, opts SignOptions) ([]byte, error)
	Verify(ctx context.Context, in io.Reader, opts VerifyOptions) (*Validity, error)
	Encrypt(ctx context.Context, in io.Reader, opts EncryptOptions) ([]byte, error)
	Decrypt(ctx context.Context, in io.Reader) (*DecryptResult, error)
	ImportKeys(ctx context.Context, in io.Reader) error
	ExportKeys(ctx context.Context, opts ExportOptions) ([]byte, error)
}

type SignOptions struct {
	// UserID selects the signing key. Empty means the backend's default key
	UserID string
	// Digest is a hash name such as SHA1. Backends may ignore names they do not accept
	Digest string
	Armor  bool
}

type VerifyOptions struct {
	// SigFile is a detached signature on disk
	SigFile string
	// Signature is a detached signature held in memory. Ignored when SigFile is set
	Signature []byte
	// Offline stops the backend from fetching missing keys
	Offline bool
}

type EncryptOptions struct {
	UserID      string
	Recipients  []string
	Armor       bool
	AlwaysTrust bool
}

type ExportOptions struct {
	Recipients []string
	Armor      bool
}

type DecryptResult struct {
	Plaintext []byte
	// Validity is set when the ciphertext was also signed
	Validity *Validity
}
