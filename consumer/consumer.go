// Package consumer implements the consuming side of a pingpong.Session: a
// drain loop that reads each slot in place, an io.Reader adapter for callers
// that need stream semantics, and slot digests.
package consumer

import (
	"context"

	"github.com/joeycumines/go-pingpong/pingpong"
	"golang.org/x/crypto/blake2b"
)

type (
	// Source is the consumer boundary of a session, implemented by
	// *pingpong.Session.
	Source interface {
		WaitReady(ctx context.Context) (pingpong.SlotID, error)
		Claim(id pingpong.SlotID) error
		SlotInfo(id pingpong.SlotID) (pingpong.SlotInfo, error)
		Slot(id pingpong.SlotID) ([]byte, error)
		Acknowledge(id pingpong.SlotID) error
	}

	// Handler processes one full slot. The data is the slot itself, and must
	// not be retained after the handler returns.
	Handler func(info pingpong.SlotInfo, data []byte) error
)

var _ Source = (*pingpong.Session)(nil)

// Drain consumes slots from src until an error occurs, passing each to
// handler, then acknowledging it. The slot is acknowledged even if handler
// returns an error, which is then returned.
//
// Returns pingpong.ErrClosed once the session is closed, pingpong.ErrStalled
// if the stream stalls, or the context error.
//
// Providing a nil ctx, src, or handler will cause a panic.
func Drain(ctx context.Context, src Source, handler Handler) error {
	if ctx == nil {
		panic(`consumer: nil context`)
	}
	if src == nil {
		panic(`consumer: nil source`)
	}
	if handler == nil {
		panic(`consumer: nil handler`)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := drainOne(ctx, src, handler); err != nil {
			return err
		}
	}
}

func drainOne(ctx context.Context, src Source, handler Handler) error {
	id, err := src.WaitReady(ctx)
	if err != nil {
		return err
	}

	if err := src.Claim(id); err != nil {
		return err
	}

	info, err := src.SlotInfo(id)
	if err != nil {
		return err
	}

	data, err := src.Slot(id)
	if err != nil {
		return err
	}

	err = handler(info, data)

	if e := src.Acknowledge(id); err == nil {
		err = e
	}

	return err
}

// Digest returns the BLAKE2b-256 digest of a slot's contents.
func Digest(data []byte) [blake2b.Size256]byte {
	return blake2b.Sum256(data)
}
