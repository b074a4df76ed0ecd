// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pingpong

import (
	"fmt"
)

// completion is the outcome of one transfer, posted by the channel's callback
// and processed by the engine goroutine.
type completion struct {
	err    error
	offset int
	length int
	n      int
}

// run is the engine goroutine. It owns the cursor, and is the only actor
// performing the FILLING → FULL and PROCESSED → FILLING transitions.
//
// At most one transfer is in flight at any time, so completions never block.
func (s *Session) run() {
	defer close(s.exited)

	s.submit()

	for {
		select {
		case <-s.done:
			return
		case c := <-s.completions:
			s.complete(c)
		case ack := <-s.restart:
			s.rearm(ack)
		}
	}
}

// post is the completion callback, it may run on any goroutine.
func (s *Session) post(c completion) {
	select {
	case s.completions <- c:
	case <-s.done:
	}
}

// submit issues one chunk at the cursor, clamped to the end of the cursor's
// slot. If that slot is not FILLING, it first waits to acquire it.
func (s *Session) submit() {
	offset := int(s.cursor.Load())
	wrap := offset == 2*s.slotSize
	id := SlotID(offset / s.slotSize)
	if wrap {
		id = Slot0
	}

	if s.slots[id].state.Load() != StateFilling && !s.acquire(id) {
		return
	}

	if wrap {
		offset = 0
		s.cursor.Store(0)
	}

	end := (int(id) + 1) * s.slotSize
	length := min(s.chunkSize, end-offset)
	dst := s.buf[offset : offset+length : offset+length]

	if err := s.ch.Submit(offset, dst, func(n int, err error) {
		s.post(completion{err: err, offset: offset, length: length, n: n})
	}); err != nil {
		s.stats.submitFailures.Add(1)
		s.stall(`submit`, offset, err)
		return
	}

	s.stats.submissions.Add(1)
}

// complete advances the cursor past a finished transfer, handing off the slot
// if it is now full, then submits the next chunk.
func (s *Session) complete(c completion) {
	if c.err == nil && (c.n < 0 || c.n > c.length) {
		c.err = fmt.Errorf("%w: %d of %d", ErrOverrun, c.n, c.length)
	}
	if c.err != nil {
		s.stats.completionFailures.Add(1)
		s.stall(`completion`, c.offset, c.err)
		return
	}

	s.stats.completions.Add(1)
	s.stats.bytes.Add(uint64(c.n))
	if c.n < c.length {
		s.stats.shortTransfers.Add(1)
	}

	next := c.offset + c.n
	if c.n != 0 && next%s.slotSize == 0 {
		s.handOff(SlotID(c.offset / s.slotSize))
	}
	s.cursor.Store(int64(next))

	s.submit()
}

// handOff marks a slot FULL, and signals readiness.
func (s *Session) handOff(id SlotID) {
	sl := &s.slots[id]

	// seq is visible before the slot is FULL
	prev := sl.seq.Load()
	sl.seq.Store(s.seq + 1)

	if !sl.state.TryTransition(StateFilling, StateFull) {
		sl.seq.Store(prev)
		// only the engine leaves StateFilling
		s.logger.Err().
			Str(`slot`, id.String()).
			Str(`state`, sl.state.Load().String()).
			Log(`pingpong: hand-off of a slot not filling`)
		return
	}
	s.seq++

	s.stats.handOffs[id].Add(1)

	if err := s.notifier.Signal(); err != nil && s.allowLog(`notify`) {
		s.logger.Warning().Err(err).Log(`pingpong: readiness signal failed`)
	}
	s.wake()

	s.logger.Debug().
		Str(`slot`, id.String()).
		Uint64(`seq`, s.seq).
		Log(`pingpong: slot full`)
}

// acquire blocks until the slot is PROCESSED, then moves it to FILLING. This
// is the engine's only suspension point. Returns false if interrupted by
// Close.
func (s *Session) acquire(id SlotID) bool {
	sl := &s.slots[id]
	var waited bool
	for {
		ch := s.queue.wait()

		if sl.state.TryTransition(StateProcessed, StateFilling) {
			s.wake()
			if waited {
				s.logger.Debug().
					Str(`slot`, id.String()).
					Log(`pingpong: producer resumed`)
			}
			return true
		}
		if sl.state.Load() == StateFilling {
			return true
		}

		if !waited {
			waited = true
			s.stats.producerWaits.Add(1)
			s.logger.Debug().
				Str(`slot`, id.String()).
				Log(`pingpong: producer waiting for slot`)
		}

		select {
		case <-ch:
		case <-s.done:
			s.stats.interruptedWaits.Add(1)
			s.logger.Warning().
				Str(`slot`, id.String()).
				Int(`cursor`, int(s.cursor.Load())).
				Log(`pingpong: producer wait interrupted by close`)
			return false
		}
	}
}

// stall stops the stream at the cursor, until Restart.
func (s *Session) stall(category string, offset int, err error) {
	s.stallErr.Store(&stallError{err: err})
	s.stalled.Store(true)
	s.stats.stalls.Add(1)

	if s.allowLog(category) {
		s.logger.Err().
			Err(err).
			Str(`op`, category).
			Int(`offset`, offset).
			Log(`pingpong: transfer failed, stream stalled`)
	}

	_ = s.notifier.Signal()
	s.wake()
}

// rearm handles Restart, closing ack once the stall is cleared.
func (s *Session) rearm(ack chan<- struct{}) {
	if !s.stalled.Load() {
		close(ack)
		return
	}
	s.stalled.Store(false)
	s.stallErr.Store(nil)
	s.stats.restarts.Add(1)

	s.logger.Info().
		Int(`cursor`, int(s.cursor.Load())).
		Log(`pingpong: stream restarted`)

	close(ack)

	s.wake()
	s.submit()
}
