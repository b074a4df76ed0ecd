package pingpong

import (
	"errors"
)

var (
	// ErrClosed is returned by any method called on, or blocked in, a session
	// that has been closed.
	ErrClosed = errors.New("pingpong: session closed")

	// ErrInvalidSlot is returned when a SlotID other than Slot0 or Slot1 is
	// given. Nothing is mutated.
	ErrInvalidSlot = errors.New("pingpong: invalid slot")

	// ErrMapSize is returned by Session.Map for a size that is not positive,
	// or exceeds the region. Nothing is mutated.
	ErrMapSize = errors.New("pingpong: map size out of range")

	// ErrStalled is returned by Session.WaitReady when the stream has stalled,
	// following a failed transfer, and no slot is full.
	ErrStalled = errors.New("pingpong: stream stalled")

	// ErrNotFull is returned by Session.Claim if the slot is not full.
	ErrNotFull = errors.New("pingpong: slot not full")

	// ErrOverrun indicates a channel reported more bytes than were requested.
	ErrOverrun = errors.New("pingpong: completion exceeds requested length")

	// ErrSlotSize indicates an invalid slot size option.
	ErrSlotSize = errors.New("pingpong: slot size must be positive")

	// ErrChunkSize indicates a channel reported a chunk size that is not
	// positive.
	ErrChunkSize = errors.New("pingpong: chunk size must be positive")
)
