package pingpong_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/joeycumines/go-pingpong/pingpong"
	"github.com/joeycumines/go-pingpong/pingpong/simchan"
	"github.com/stretchr/testify/require"
)

const (
	testSlotSize  = 8
	testChunkSize = 4
)

func checkNumGoroutines(timeout time.Duration) func(t *testing.T) {
	before := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		deadline := time.Now().Add(timeout)
		for {
			after := runtime.NumGoroutine()
			if after <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf(`goroutine leak: before=%d after=%d`, before, after)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newManual starts a session over a manual simchan, with slots of
// testSlotSize bytes, and chunks of testChunkSize bytes.
func newManual(t *testing.T, opts ...pingpong.SessionOption) (*pingpong.Session, *simchan.Channel) {
	t.Helper()
	ch := simchan.New(&simchan.Config{ChunkSize: testChunkSize})
	s, err := pingpong.New(ch, append([]pingpong.SessionOption{
		pingpong.WithSlotSize(testSlotSize),
		pingpong.WithLogRateLimits(nil),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, ch
}

// completeNext waits for the next transfer, then completes it with n bytes of
// b, returning the transfer.
func completeNext(t *testing.T, ch *simchan.Channel, n int, b byte) simchan.Transfer {
	t.Helper()
	require.NoError(t, ch.WaitPending(testContext(t), 1))
	tr, err := ch.CompleteN(n, b)
	require.NoError(t, err)
	return tr
}

// fillSlot completes whole chunks until a slot's worth of bytes is delivered.
func fillSlot(t *testing.T, ch *simchan.Channel, b byte) {
	t.Helper()
	for range testSlotSize / testChunkSize {
		tr := completeNext(t, ch, testChunkSize, b)
		require.Equal(t, testChunkSize, tr.Len)
	}
}

func requireState(t *testing.T, s *pingpong.Session, id pingpong.SlotID, want pingpong.SlotState) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, err := s.State(id)
		return err == nil && state == want
	}, 5*time.Second, time.Millisecond, `slot %s never reached %s`, id, want)
}

func requirePending(t *testing.T, ch *simchan.Channel, want ...simchan.Transfer) {
	t.Helper()
	if len(want) != 0 {
		require.NoError(t, ch.WaitPending(testContext(t), len(want)))
	}
	require.Equal(t, want, nilIfEmpty(ch.Pending()))
}

func nilIfEmpty(v []simchan.Transfer) []simchan.Transfer {
	if len(v) == 0 {
		return nil
	}
	return v
}
