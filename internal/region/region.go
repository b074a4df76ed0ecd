// Package region allocates the fixed block of memory backing a session.
//
// On Linux the block is an anonymous memory file, mapped shared, so another
// process can map the same pages through Region.Fd. Elsewhere, or when not
// requested, it is an ordinary heap slice.
package region

import (
	"errors"
	"sync"
)

// ErrSize is returned by New for a size that is not positive.
var ErrSize = errors.New("region: size must be positive")

// Region is a fixed-size block of memory, released exactly once by Close.
type Region struct {
	buf     []byte
	release func() error
	err     error
	once    sync.Once
	fd      int
}

// New allocates a region of size bytes. If shared is true, and the platform
// supports it, the region is backed by a memory file, see Region.Fd.
func New(size int, shared bool) (*Region, error) {
	if size <= 0 {
		return nil, ErrSize
	}
	if shared {
		return newShared(size)
	}
	return newHeap(size), nil
}

func newHeap(size int) *Region {
	return &Region{buf: make([]byte, size), fd: -1}
}

// Bytes returns the full region. The slice must not be used after Close.
func (x *Region) Bytes() []byte { return x.buf }

// Len returns the size of the region.
func (x *Region) Len() int { return len(x.buf) }

// Fd returns the descriptor of the backing memory file, or -1 if the region
// is heap backed. It is owned by the region, and is invalid after Close.
func (x *Region) Fd() int { return x.fd }

// Close releases the region. Subsequent calls return the same result.
func (x *Region) Close() error {
	x.once.Do(func() {
		if x.release != nil {
			x.err = x.release()
		}
	})
	return x.err
}
