package pingpong

import (
	"context"
)

type (
	// Channel models the asynchronous device endpoint the session reads from.
	//
	// Implementations must uphold the following:
	//
	//   - Submit either rejects the transfer by returning an error, in which
	//     case done is never called, or accepts it, in which case done is
	//     called exactly once
	//   - done may be called from any goroutine, including from within Submit
	//   - n passed to done is the number of bytes written into dst, starting
	//     at dst[0], and must not exceed len(dst)
	//   - once Cancel returns, done is not called for any transfer
	Channel interface {
		// ChunkSize is the maximum transfer size, it must be positive.
		ChunkSize() int

		// Submit issues one asynchronous read of up to len(dst) bytes, to be
		// delivered directly into dst. The offset is the position of dst within
		// the region, and is informational.
		Submit(offset int, dst []byte, done CompletionFunc) error

		// Cancel aborts any in-flight transfer, and waits for outstanding
		// completion callbacks to return.
		Cancel(ctx context.Context) error
	}

	// CompletionFunc receives the outcome of a transfer accepted by
	// Channel.Submit.
	CompletionFunc func(n int, err error)
)
