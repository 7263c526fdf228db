// Package secret holds passphrases and other key material in memory that is
// locked against swapping where the system allows it, and wiped on release.
package secret

import (
	"sync"
	"sync/atomic"

	"github.com/awnumar/memguard"
)

// minMlockLimitKB is the smallest RLIMIT_MEMLOCK we are prepared to run
// memguard under. Each LockedBuffer pins its data pages and the coffer pins more.
const minMlockLimitKB = 512

var (
	probeOnce       sync.Once
	mlockSufficient bool
	mlockLimitKB    int64

	insecure atomic.Bool
)

// Buffer is a secret held in memory until Destroy is called. Bytes is only
// valid until then.
type Buffer interface {
	Bytes() []byte
	Len() int
	Destroy()
}

// SetInsecure forces plain heap buffers even when mlock is available. Plain
// buffers are still wiped on Destroy.
func SetInsecure(value bool) {
	insecure.Store(value)
}

// Locked tells us whether new buffers will be backed by locked memory, along
// with the memlock limit we found (-1 meaning unlimited or unknown).
func Locked() (bool, int64) {
	probeOnce.Do(func() {
		mlockSufficient, mlockLimitKB = checkMlockLimit()
	})
	return mlockSufficient && !insecure.Load(), mlockLimitKB
}

// New moves b into a Buffer. b is wiped before New returns, so the caller
// must not use it afterwards.
func New(b []byte) Buffer {
	if locked, _ := Locked(); locked && len(b) > 0 {
		return &lockedBuffer{buf: memguard.NewBufferFromBytes(b)}
	}

	plain := &plainBuffer{data: make([]byte, len(b))}
	copy(plain.data, b)
	Wipe(b)
	return plain
}

// Wipe zero-fills b.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}

// Purge destroys every locked buffer still alive. Meant to be deferred in main.
func Purge() {
	memguard.Purge()
}

type lockedBuffer struct {
	buf *memguard.LockedBuffer
}

func (b *lockedBuffer) Bytes() []byte {
	if !b.buf.IsAlive() {
		return nil
	}
	return b.buf.Bytes()
}

func (b *lockedBuffer) Len() int {
	if !b.buf.IsAlive() {
		return 0
	}
	return b.buf.Size()
}

func (b *lockedBuffer) Destroy() {
	b.buf.Destroy()
}

type plainBuffer struct {
	data []byte
}

func (b *plainBuffer) Bytes() []byte {
	return b.data
}

func (b *plainBuffer) Len() int {
	return len(b.data)
}

func (b *plainBuffer) Destroy() {
	Wipe(b.data)
	b.data = nil
}
