package consumer

import (
	"context"
	"errors"
	"io"

	"github.com/joeycumines/go-pingpong/pingpong"
	"github.com/smallnest/ringbuffer"
)

// Reader adapts a Source to io.Reader. Each full slot is copied, whole, into
// a byte ring, then acknowledged immediately, so the engine is never held up
// by a slow Read caller. Once the session is closed, Read returns io.EOF.
// A stalled stream returns pingpong.ErrStalled, and Read may be retried after
// the session is restarted.
//
// Reader is not safe for concurrent use.
type Reader struct {
	ctx  context.Context
	src  Source
	ring *ringbuffer.RingBuffer
	err  error
}

var _ io.Reader = (*Reader)(nil)

// NewReader returns a Reader for src, buffering one slot of slotSize bytes.
// The ctx bounds blocking waits for data.
func NewReader(ctx context.Context, src Source, slotSize int) *Reader {
	if ctx == nil {
		panic(`consumer: nil context`)
	}
	if src == nil {
		panic(`consumer: nil source`)
	}
	if slotSize <= 0 {
		panic(`consumer: slot size must be positive`)
	}
	return &Reader{
		ctx:  ctx,
		src:  src,
		ring: ringbuffer.New(slotSize),
	}
}

// Buffered returns the number of bytes copied from the session, but not yet
// read.
func (x *Reader) Buffered() int { return x.ring.Length() }

// Read implements io.Reader.
func (x *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if x.ring.IsEmpty() {
		if x.err != nil {
			return 0, x.err
		}
		if err := x.fill(); err != nil {
			if errors.Is(err, pingpong.ErrClosed) {
				err = io.EOF
			}
			// stalls may be restarted, and context errors are per call
			if !errors.Is(err, pingpong.ErrStalled) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded) {
				x.err = err
			}
			return 0, err
		}
	}
	n, err := x.ring.TryRead(p)
	if errors.Is(err, ringbuffer.ErrIsEmpty) {
		err = nil
	}
	return n, err
}

func (x *Reader) fill() error {
	id, err := x.src.WaitReady(x.ctx)
	if err != nil {
		return err
	}

	data, err := x.src.Slot(id)
	if err != nil {
		return err
	}

	if _, err := x.ring.Write(data); err != nil {
		return err
	}

	return x.src.Acknowledge(id)
}
