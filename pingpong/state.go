// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pingpong

import (
	"sync/atomic"
)

// SlotState is the lifecycle state of one slot of the region.
//
// State Machine:
//
//	StateFilling (0)   → StateFull (1)        [engine, last chunk of the slot completed]
//	StateFull (1)      → StateProcessing (2)  [consumer, Session.Claim]
//	StateFull (1)      → StateProcessed (3)   [consumer, Session.Acknowledge]
//	StateProcessing (2) → StateProcessed (3)  [consumer, Session.Acknowledge]
//	StateProcessed (3) → StateFilling (0)     [engine, reusing the slot]
//
// There is no StateFull → StateFilling edge. A slot the consumer has not
// released can never be written.
//
// Transition Rules:
//   - Every edge is a CAS (slotState.TryTransition), illegal edges fail
//     without mutating anything
//   - Store is only used to set the initial states
type SlotState uint32

const (
	// StateFilling indicates the engine is writing into the slot.
	StateFilling SlotState = 0
	// StateFull indicates the slot holds a complete payload, ready to read.
	StateFull SlotState = 1
	// StateProcessing indicates the consumer has claimed the slot.
	StateProcessing SlotState = 2
	// StateProcessed indicates the consumer released the slot for reuse.
	StateProcessed SlotState = 3
)

// String returns a human-readable representation of the state.
func (s SlotState) String() string {
	switch s {
	case StateFilling:
		return "Filling"
	case StateFull:
		return "Full"
	case StateProcessing:
		return "Processing"
	case StateProcessed:
		return "Processed"
	default:
		return "Unknown"
	}
}

// slotState is a lock-free state cell with cache-line padding, one per slot.
// The engine and the consumer hammer different slots, so each cell gets its
// own line.
type slotState struct { // betteralign:ignore
	_ [64]byte      // Cache line padding (before value) //nolint:unused
	v atomic.Uint32 // State value
	_ [60]byte      // Pad to complete cache line (64 - 4 = 60) //nolint:unused
}

// Load returns the current state atomically.
func (s *slotState) Load() SlotState {
	return SlotState(s.v.Load())
}

// Store atomically stores a new state, without validation.
func (s *slotState) Store(state SlotState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *slotState) TryTransition(from, to SlotState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// TransitionAny attempts to transition from any of validFrom to the target,
// returning the state it transitioned from.
func (s *slotState) TransitionAny(validFrom []SlotState, to SlotState) (SlotState, bool) {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint32(from), uint32(to)) {
			return from, true
		}
	}
	return 0, false
}
