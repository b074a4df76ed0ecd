package pingpong

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-pingpong/internal/notify"
	"github.com/joeycumines/go-pingpong/internal/region"
	"github.com/joeycumines/logiface"
)

// Session streams data from a Channel into a two slot region, handing each
// filled slot to a consumer, in place. See the package docs.
//
// All methods are safe to call concurrently. The consumer facing methods
// (Map, Slot, WaitReady, Claim, Acknowledge, and friends) assume a single
// consumer.
type Session struct {
	ch            Channel
	logger        *logiface.Logger[logiface.Event]
	limiter       *catrate.Limiter
	region        *region.Region
	notifier      *notify.Notifier
	queue         *waitQueue
	buf           []byte
	done          chan struct{}
	exited        chan struct{}
	completions   chan completion
	restart       chan chan struct{}
	stallErr      atomic.Pointer[stallError]
	closeErr      error
	stats         counters
	slots         [2]slot
	id            uint64
	seq           uint64 // engine only
	slotSize      int
	chunkSize     int
	cancelTimeout time.Duration
	cursor        atomic.Int64
	closeOnce     sync.Once
	closed        atomic.Bool
	stalled       atomic.Bool
}

type stallError struct{ err error }

var sessionIDs atomic.Uint64

// New allocates a session reading from ch, and starts streaming into slot 0.
// On error, anything partially acquired is released. Panics if ch is nil.
//
// The caller must call Session.Close, which also cancels ch.
func New(ch Channel, opts ...SessionOption) (*Session, error) {
	if ch == nil {
		panic(`pingpong: nil channel`)
	}

	cfg, err := resolveSessionOptions(opts)
	if err != nil {
		return nil, err
	}

	chunkSize := ch.ChunkSize()
	if chunkSize <= 0 {
		return nil, ErrChunkSize
	}

	reg, err := region.New(2*cfg.slotSize, cfg.sharedRegion)
	if err != nil {
		return nil, fmt.Errorf("pingpong: allocate region: %w", err)
	}

	notifier := notify.Disabled()
	if cfg.readyNotifier {
		if notifier, err = notify.New(); err != nil {
			return nil, errors.Join(fmt.Errorf("pingpong: create notifier: %w", err), reg.Close())
		}
	}

	var limiter *catrate.Limiter
	if len(cfg.logRates) != 0 {
		limiter = catrate.NewLimiter(cfg.logRates)
	}

	id := sessionIDs.Add(1)

	s := &Session{
		ch:            ch,
		logger:        cfg.logger.Clone().Uint64(`session`, id).Logger(),
		limiter:       limiter,
		region:        reg,
		notifier:      notifier,
		queue:         newWaitQueue(),
		buf:           reg.Bytes(),
		done:          make(chan struct{}),
		exited:        make(chan struct{}),
		completions:   make(chan completion, 1),
		restart:       make(chan chan struct{}),
		id:            id,
		slotSize:      cfg.slotSize,
		chunkSize:     chunkSize,
		cancelTimeout: cfg.cancelTimeout,
	}
	s.slots[Slot0].state.Store(StateFilling)
	s.slots[Slot1].state.Store(StateProcessed)

	s.logger.Info().
		Int(`slot_size`, s.slotSize).
		Int(`chunk_size`, s.chunkSize).
		Int(`region_fd`, reg.Fd()).
		Int(`ready_fd`, notifier.Fd()).
		Log(`pingpong: session started`)

	go s.run()

	return s, nil
}

// ID returns the process-unique id of the session, starting at 1.
func (s *Session) ID() uint64 { return s.id }

// SlotSize returns S, the size of each slot.
func (s *Session) SlotSize() int { return s.slotSize }

// Cursor returns the offset of the next chunk the engine will submit. While
// the engine waits for a slot, the cursor is pinned at that slot's boundary,
// which is 2 x S before wrapping back to 0.
func (s *Session) Cursor() int { return int(s.cursor.Load()) }

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats { return s.stats.snapshot() }

// Done returns a channel that is closed when Close is called.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stalled reports whether the stream is stalled, following a failed
// transfer. See also Err and Restart.
func (s *Session) Stalled() bool { return s.stalled.Load() }

// Err returns the error that stalled the stream, or nil if not stalled.
func (s *Session) Err() error {
	if v := s.stallErr.Load(); v != nil {
		return v.err
	}
	return nil
}

// Restart re-arms a stalled stream, resubmitting at the cursor. It returns
// once the engine has cleared the stall, which may fail again immediately.
// It is a no-op if the stream is not stalled.
func (s *Session) Restart() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.stalled.Load() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case s.restart <- ack:
	case <-s.done:
		return ErrClosed
	}
	select {
	case <-ack:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Close tears down the session: any suspended wait (producer or consumer) is
// aborted, the engine stops processing completions, the channel is cancelled
// and drained, then the region is released. Slices returned by Map and Slot
// must not be used after Close. Subsequent calls return the same result.
//
// If the channel fails to cancel within the cancel timeout, a transfer may
// still be writing into the region, so it is leaked rather than released, and
// the cancel error is returned.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		<-s.exited

		ctx := context.Background()
		if s.cancelTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cancelTimeout)
			defer cancel()
		}

		var errs []error
		cancelErr := s.ch.Cancel(ctx)
		if cancelErr != nil {
			errs = append(errs, fmt.Errorf("pingpong: cancel channel: %w", cancelErr))
		}
		if err := s.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pingpong: close notifier: %w", err))
		}
		if cancelErr != nil {
			s.logger.Warning().
				Err(cancelErr).
				Int(`region_size`, s.region.Len()).
				Log(`pingpong: channel not drained, region leaked`)
		} else if err := s.region.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pingpong: release region: %w", err))
		}
		s.closeErr = errors.Join(errs...)

		stats := s.stats.snapshot()
		var b *logiface.Builder[logiface.Event]
		if s.closeErr != nil {
			b = s.logger.Warning().Err(s.closeErr)
		} else {
			b = s.logger.Info()
		}
		b.Uint64(`bytes`, stats.Bytes).
			Uint64(`hand_offs`, stats.HandOffTotal()).
			Uint64(`interrupted_waits`, stats.InterruptedWaits).
			Log(`pingpong: session closed`)
	})
	return s.closeErr
}

// wake broadcasts on the session's wait queue.
func (s *Session) wake() {
	s.stats.wakeups.Add(1)
	s.queue.wake()
}

// allowLog throttles noisy log lines, per category.
func (s *Session) allowLog(category string) bool {
	_, ok := s.limiter.Allow(category)
	return ok
}
