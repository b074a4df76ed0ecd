package pingpong

import (
	"context"
)

// Readiness is the result of Session.Poll.
type Readiness struct {
	// Ready is true if at least one slot is FULL.
	Ready bool `json:"ready"`
	// Stalled is true if the stream stopped after a failed transfer.
	Stalled bool `json:"stalled"`
	// Closed is true if the session has been closed.
	Closed bool `json:"closed"`
}

var ackFrom = [...]SlotState{StateFull, StateProcessing}

// Map returns a view of the first size bytes of the region, without copying.
// The engine writes into the slot that is FILLING, so only slots reported by
// WaitReady (or Ready) should be read, until acknowledged.
func (s *Session) Map(size int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if size <= 0 || size > len(s.buf) {
		return nil, ErrMapSize
	}
	return s.buf[:size:size], nil
}

// Slot returns the view of a single slot, without copying.
func (s *Session) Slot(id SlotID) ([]byte, error) {
	if !id.valid() {
		return nil, ErrInvalidSlot
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	base := int(id) * s.slotSize
	return s.buf[base : base+s.slotSize : base+s.slotSize], nil
}

// State returns the current state of a slot.
func (s *Session) State(id SlotID) (SlotState, error) {
	if !id.valid() {
		return 0, ErrInvalidSlot
	}
	return s.slots[id].state.Load(), nil
}

// SlotInfo describes a slot, see SlotInfo.
func (s *Session) SlotInfo(id SlotID) (SlotInfo, error) {
	if !id.valid() {
		return SlotInfo{}, ErrInvalidSlot
	}
	sl := &s.slots[id]
	return SlotInfo{
		ID:    id,
		State: sl.state.Load(),
		Seq:   sl.seq.Load(),
		Base:  int(id) * s.slotSize,
		Size:  s.slotSize,
	}, nil
}

// Ready reports whether at least one slot is FULL. Claimed (PROCESSING) slots
// are not counted.
func (s *Session) Ready() bool {
	_, ok := s.oldestFull()
	return ok
}

// Poll returns the readiness of the session, without blocking.
func (s *Session) Poll() Readiness {
	return Readiness{
		Ready:   s.Ready(),
		Stalled: s.stalled.Load(),
		Closed:  s.closed.Load(),
	}
}

// WaitReady blocks until a slot is FULL, returning the one filled first.
// Returns ErrClosed if the session is (or becomes) closed, ErrStalled if the
// stream is stalled and no slot is FULL, or the context error.
func (s *Session) WaitReady(ctx context.Context) (SlotID, error) {
	for {
		ch := s.queue.wait()

		if s.closed.Load() {
			return NoSlot, ErrClosed
		}
		if id, ok := s.oldestFull(); ok {
			return id, nil
		}
		if s.stalled.Load() {
			return NoSlot, ErrStalled
		}

		select {
		case <-ch:
		case <-s.done:
			return NoSlot, ErrClosed
		case <-ctx.Done():
			return NoSlot, ctx.Err()
		}
	}
}

// Claim marks a FULL slot as PROCESSING, indicating a read is in progress.
// It is optional, Acknowledge accepts FULL slots directly.
func (s *Session) Claim(id SlotID) error {
	if !id.valid() {
		return ErrInvalidSlot
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.slots[id].state.TryTransition(StateFull, StateProcessing) {
		return ErrNotFull
	}
	return nil
}

// Acknowledge releases a FULL or PROCESSING slot back to the engine, as
// PROCESSED, waking the engine if it is waiting for that slot. Acknowledging
// a slot in any other state is a no-op.
func (s *Session) Acknowledge(id SlotID) error {
	if !id.valid() {
		return ErrInvalidSlot
	}
	if s.closed.Load() {
		return ErrClosed
	}

	if _, ok := s.slots[id].state.TransitionAny(ackFrom[:], StateProcessed); !ok {
		s.stats.noopAcknowledgments.Add(1)
		return nil
	}
	s.stats.acknowledgments.Add(1)

	// keep the descriptor readable while something remains to be seen
	s.notifier.Drain()
	if s.Ready() || s.stalled.Load() {
		_ = s.notifier.Signal()
	}

	s.wake()

	return nil
}

// ReadyFd returns a descriptor that polls readable when a slot becomes FULL,
// or the stream stalls, and is drained by Acknowledge. Returns -1 where
// unsupported, or if disabled by WithReadyNotifier. The descriptor is owned by
// the session.
func (s *Session) ReadyFd() int { return s.notifier.Fd() }

// RegionFd returns a descriptor that may be mapped, by another process, to
// access the region, or -1 if the region is heap backed. The descriptor is
// owned by the session.
func (s *Session) RegionFd() int { return s.region.Fd() }

// oldestFull returns the FULL slot with the lowest hand-off sequence.
func (s *Session) oldestFull() (SlotID, bool) {
	full0 := s.slots[Slot0].state.Load() == StateFull
	full1 := s.slots[Slot1].state.Load() == StateFull
	switch {
	case full0 && full1:
		if s.slots[Slot1].seq.Load() < s.slots[Slot0].seq.Load() {
			return Slot1, true
		}
		return Slot0, true
	case full0:
		return Slot0, true
	case full1:
		return Slot1, true
	default:
		return NoSlot, false
	}
}
