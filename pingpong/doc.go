// Package pingpong implements a double buffered ("ping-pong") zero-copy
// hand-off, between an asynchronous producer, a device Channel, and a
// consumer reading the same memory in place.
//
// A Session owns one region of 2 x S bytes, split into two slots. The engine
// goroutine submits one chunk at a time into the slot that is FILLING, and on
// each completion either continues within the slot, or marks it FULL and
// moves to the other slot. The consumer waits for a FULL slot (WaitReady, or
// the descriptor from ReadyFd), reads it through Map or Slot, then releases it
// with Acknowledge. The engine never writes into a slot the consumer has not
// released: if it reaches a slot that is still FULL, it suspends until the
// consumer acknowledges it, or the session is closed.
//
// Slot lifecycle:
//
//	FILLING → FULL → (PROCESSING →) PROCESSED → FILLING → ...
//
// Slot 0 starts FILLING, slot 1 starts PROCESSED. A failed transfer stalls
// the stream at the cursor, see Session.Stalled and Session.Restart.
package pingpong
