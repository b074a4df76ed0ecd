package simchan

import (
	"io"
)

// PatternReader is an endless, deterministic source, yielding the bytes
// seed, seed+1, seed+2, ... (wrapping), and at most MaxRead bytes per Read.
type PatternReader struct {
	// MaxRead limits each Read, if positive.
	MaxRead int
	next    byte
}

var _ io.Reader = (*PatternReader)(nil)

// NewPatternReader returns a PatternReader starting at seed.
func NewPatternReader(seed byte, maxRead int) *PatternReader {
	return &PatternReader{MaxRead: maxRead, next: seed}
}

// Read implements io.Reader.
func (x *PatternReader) Read(p []byte) (int, error) {
	if x.MaxRead > 0 && len(p) > x.MaxRead {
		p = p[:x.MaxRead]
	}
	for i := range p {
		p[i] = x.next
		x.next++
	}
	return len(p), nil
}
