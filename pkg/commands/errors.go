package commands

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// ErrorKind tells calling code which of the ways a gpg operation can fail it
// is looking at
type ErrorKind int

const (
	// SpawnError means gpg could not be started at all
	SpawnError ErrorKind = iota
	// ProtocolError means gpg said something on the status fd we could not make sense of
	ProtocolError
	// UserCancelled means the operation was cancelled, or a passphrase prompt was dismissed
	UserCancelled
	// CantAuthenticate means three bad passphrases were given
	CantAuthenticate
	// SystemError covers I/O failures, gpg failing, and gpg refusing the request
	SystemError
)

func (k ErrorKind) String() string {
	switch k {
	case SpawnError:
		return "spawn"
	case ProtocolError:
		return "protocol"
	case UserCancelled:
		return "cancelled"
	case CantAuthenticate:
		return "cant-authenticate"
	case SystemError:
		return "system"
	}
	return "unknown"
}

// WrapError wraps an error for the sake of showing a stack trace at the top level
// the go-errors package, for some reason, does not return nil when you try to wrap
// a non-error, so we're just doing it here
func WrapError(err error) error {
	if err == nil {
		return err
	}

	return errors.Wrap(err, 0)
}

// GpgError an error which carries a kind so that calling code has an easier job to do
// adapted from https://medium.com/yakka/better-go-error-handling-with-xerrors-1987650e0c79
type GpgError struct {
	Kind    ErrorKind
	Message string
	Err     error
	frame   xerrors.Frame
}

func newGpgError(kind ErrorKind, message string, err error) GpgError {
	return GpgError{
		Kind:    kind,
		Message: message,
		Err:     err,
		frame:   xerrors.Caller(1),
	}
}

// FormatError is a function
func (ge GpgError) FormatError(p xerrors.Printer) error {
	p.Print(ge.Message)
	ge.frame.Format(p)
	return ge.Err
}

// Format is a function
func (ge GpgError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ge, f, c)
}

func (ge GpgError) Error() string {
	return fmt.Sprint(ge)
}

func (ge GpgError) Unwrap() error {
	return ge.Err
}

// HasErrorKind tells us whether err is, or wraps, a GpgError of the given kind
func HasErrorKind(err error, kind ErrorKind) bool {
	var originalErr GpgError
	if xerrors.As(err, &originalErr) {
		return originalErr.Kind == kind
	}
	return false
}

// ErrorKindOf returns the kind of GpgError err carries, if any
func ErrorKindOf(err error) (ErrorKind, bool) {
	var originalErr GpgError
	if xerrors.As(err, &originalErr) {
		return originalErr.Kind, true
	}
	return 0, false
}
