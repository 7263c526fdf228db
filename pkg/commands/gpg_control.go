package commands

import (
	"context"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sys/unix"
)

// Control is consulted by a running gpg operation to find out whether it
// should give up
type Control interface {
	CancelRequested() bool
	// CancelFD becomes readable once cancellation has been requested. A
	// negative value means cancellation will never be requested.
	CancelFD() int
}

// ContextControl is a Control driven by a context. Cancelling the context
// writes a byte to a pipe whose read end is polled alongside gpg's pipes.
type ContextControl struct {
	ctx     context.Context
	readFD  int
	writeFD int
	stop    func() bool
	mutex   deadlock.Mutex
}

var _ Control = &ContextControl{}

// ControlFromContext builds a Control for ctx. Close must be called once the
// operation is over.
func ControlFromContext(ctx context.Context) (*ContextControl, error) {
	control := &ContextControl{ctx: ctx, readFD: -1, writeFD: -1}
	if ctx.Done() == nil {
		return control, nil
	}

	readFD, writeFD, err := newPipe()
	if err != nil {
		return nil, WrapError(err)
	}
	control.readFD = readFD
	control.writeFD = writeFD
	control.stop = context.AfterFunc(ctx, control.notify)

	return control, nil
}

func (c *ContextControl) notify() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.writeFD >= 0 {
		// the pipe is empty and we only ever write one byte, so this cannot block
		_, _ = unix.Write(c.writeFD, []byte{1})
	}
}

func (c *ContextControl) CancelRequested() bool {
	return c.ctx.Err() != nil
}

func (c *ContextControl) CancelFD() int {
	return c.readFD
}

func (c *ContextControl) Close() error {
	if c.stop != nil {
		c.stop()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, fd := range []*int{&c.readFD, &c.writeFD} {
		if *fd >= 0 {
			_ = unix.Close(*fd)
			*fd = -1
		}
	}
	return nil
}
