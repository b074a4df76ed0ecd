// Package simchan implements pingpong.Channel in memory, as a stand-in for a
// device endpoint.
//
// In manual mode, submitted transfers queue until completed, failed, or
// cancelled, by the caller. In auto mode, a worker goroutine completes each
// transfer by reading from a source.
package simchan

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/go-pingpong/pingpong"
)

const (
	// DefaultChunkSize is used if Config.ChunkSize is 0.
	DefaultChunkSize = 512
)

var (
	// ErrCancelled is passed to the completion of any transfer still pending
	// when Channel.Cancel is called, and returned by calls after Cancel.
	ErrCancelled = errors.New("simchan: cancelled")

	// ErrNoPending is returned when completing a transfer, if none is pending.
	ErrNoPending = errors.New("simchan: no pending transfer")
)

// Config models optional configuration for New.
type Config struct {
	// Source enables auto mode, if non-nil. Each transfer is completed by a
	// single Read from Source, directly into the transfer's buffer, so short
	// reads become short transfers. A read error is passed to the completion.
	Source io.Reader

	// OnWrite is called before any data is written into a transfer's buffer,
	// with the transfer's offset and the number of bytes about to be written.
	OnWrite func(offset, n int)

	// ChunkSize is the value returned by Channel.ChunkSize.
	//
	// Defaults to 512, if 0.
	ChunkSize int

	// Latency is the delay before each auto mode completion.
	Latency time.Duration
}

// Transfer describes a submitted transfer.
type Transfer struct {
	Offset int
	Len    int
}

type transfer struct {
	done   pingpong.CompletionFunc
	dst    []byte
	offset int
}

// Channel is an in-memory pingpong.Channel. Use New to construct.
type Channel struct {
	src        io.Reader
	onWrite    func(offset, n int)
	pending    []*transfer
	rejects    []error
	changed    chan struct{}
	work       chan struct{}
	stop       chan struct{}
	workerDone chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	chunkSize  int
	latency    time.Duration
	submitted  int
	cancelled  bool
}

var _ pingpong.Channel = (*Channel)(nil)

// New constructs a Channel. The cfg parameter is optional, and may be nil, in
// which case the documented defaults will be used.
func New(cfg *Config) *Channel {
	x := &Channel{
		chunkSize: DefaultChunkSize,
		changed:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
	if cfg != nil {
		if cfg.ChunkSize != 0 {
			x.chunkSize = cfg.ChunkSize
		}
		x.src = cfg.Source
		x.onWrite = cfg.OnWrite
		x.latency = cfg.Latency
	}
	if x.src != nil {
		x.work = make(chan struct{}, 1)
		x.workerDone = make(chan struct{})
		go x.worker()
	}
	return x
}

// ChunkSize implements pingpong.Channel.
func (x *Channel) ChunkSize() int { return x.chunkSize }

// Submit implements pingpong.Channel.
func (x *Channel) Submit(offset int, dst []byte, done pingpong.CompletionFunc) error {
	if done == nil {
		panic(`simchan: nil completion`)
	}

	x.mu.Lock()
	if x.cancelled {
		x.mu.Unlock()
		return ErrCancelled
	}
	if len(x.rejects) != 0 {
		err := x.rejects[0]
		x.rejects = x.rejects[1:]
		x.mu.Unlock()
		return err
	}
	x.pending = append(x.pending, &transfer{done: done, dst: dst, offset: offset})
	x.submitted++
	x.broadcastLocked()
	x.mu.Unlock()

	if x.work != nil {
		select {
		case x.work <- struct{}{}:
		default:
		}
	}

	return nil
}

// RejectNext causes the next call to Submit to fail with err. Multiple calls
// queue, in order.
func (x *Channel) RejectNext(err error) {
	if err == nil {
		panic(`simchan: nil error`)
	}
	x.mu.Lock()
	x.rejects = append(x.rejects, err)
	x.mu.Unlock()
}

// Pending returns the transfers that are currently pending, oldest first.
func (x *Channel) Pending() []Transfer {
	x.mu.Lock()
	defer x.mu.Unlock()
	v := make([]Transfer, len(x.pending))
	for i, t := range x.pending {
		v[i] = Transfer{Offset: t.offset, Len: len(t.dst)}
	}
	return v
}

// Submitted returns the total number of accepted transfers.
func (x *Channel) Submitted() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.submitted
}

// WaitPending blocks until at least n transfers are pending, or until the
// channel is cancelled, or ctx is done.
func (x *Channel) WaitPending(ctx context.Context, n int) error {
	for {
		x.mu.Lock()
		count, cancelled, ch := len(x.pending), x.cancelled, x.changed
		x.mu.Unlock()
		if count >= n {
			return nil
		}
		if cancelled {
			return ErrCancelled
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Complete completes the oldest pending transfer, copying data into its
// buffer, and reporting the number of bytes copied.
func (x *Channel) Complete(data []byte) (Transfer, error) {
	t, err := x.pop()
	if err != nil {
		return Transfer{}, err
	}
	defer x.wg.Done()
	n := min(len(data), len(t.dst))
	x.write(t, n)
	copy(t.dst, data[:n])
	t.done(n, nil)
	return Transfer{Offset: t.offset, Len: len(t.dst)}, nil
}

// CompleteN completes the oldest pending transfer, filling up to n bytes of
// its buffer with b, and reporting n. A negative n, or one larger than the
// transfer, simulates a misbehaving device.
func (x *Channel) CompleteN(n int, b byte) (Transfer, error) {
	t, err := x.pop()
	if err != nil {
		return Transfer{}, err
	}
	defer x.wg.Done()
	w := max(0, min(n, len(t.dst)))
	x.write(t, w)
	for i := range t.dst[:w] {
		t.dst[i] = b
	}
	t.done(n, nil)
	return Transfer{Offset: t.offset, Len: len(t.dst)}, nil
}

// Fail completes the oldest pending transfer with err.
func (x *Channel) Fail(err error) (Transfer, error) {
	if err == nil {
		panic(`simchan: nil error`)
	}
	t, e := x.pop()
	if e != nil {
		return Transfer{}, e
	}
	defer x.wg.Done()
	t.done(0, err)
	return Transfer{Offset: t.offset, Len: len(t.dst)}, nil
}

// Cancel implements pingpong.Channel. Pending transfers complete with
// ErrCancelled, then Cancel waits for any running completion to return, and
// for the auto mode worker to exit.
func (x *Channel) Cancel(ctx context.Context) error {
	x.mu.Lock()
	pending := x.pending
	x.pending = nil
	if !x.cancelled {
		x.cancelled = true
		close(x.stop)
	}
	x.broadcastLocked()
	x.mu.Unlock()

	for _, t := range pending {
		t.done(0, ErrCancelled)
	}

	idle := make(chan struct{})
	go func() {
		x.wg.Wait()
		if x.workerDone != nil {
			<-x.workerDone
		}
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pop removes the oldest pending transfer, registering it as running. The
// caller must call x.wg.Done once the completion returns.
func (x *Channel) pop() (*transfer, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.cancelled {
		return nil, ErrCancelled
	}
	if len(x.pending) == 0 {
		return nil, ErrNoPending
	}
	t := x.pending[0]
	x.pending[0] = nil
	x.pending = x.pending[1:]
	x.wg.Add(1)
	x.broadcastLocked()
	return t, nil
}

func (x *Channel) write(t *transfer, n int) {
	if x.onWrite != nil {
		x.onWrite(t.offset, n)
	}
}

func (x *Channel) broadcastLocked() {
	close(x.changed)
	x.changed = make(chan struct{})
}

func (x *Channel) worker() {
	defer close(x.workerDone)

	var timer *time.Timer
	if x.latency > 0 {
		timer = time.NewTimer(x.latency)
		timer.Stop()
		defer timer.Stop()
	}

	for {
		t, err := x.pop()
		if err == ErrCancelled {
			return
		}
		if err != nil {
			select {
			case <-x.stop:
				return
			case <-x.work:
			}
			continue
		}

		if timer != nil {
			timer.Reset(x.latency)
			select {
			case <-x.stop:
				t.done(0, ErrCancelled)
				x.wg.Done()
				return
			case <-timer.C:
			}
		}

		x.write(t, len(t.dst))
		n, err := x.src.Read(t.dst)
		if err == io.EOF && n != 0 {
			err = nil
		}
		t.done(n, err)
		x.wg.Done()
	}
}
