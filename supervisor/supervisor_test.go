package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-pingpong/pingpong"
	"github.com/joeycumines/go-pingpong/pingpong/simchan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Target = (*pingpong.Session)(nil)

type fakeTarget struct {
	err        error
	restartErr error
	done       chan struct{}
	closeOnce  sync.Once
	restarts   atomic.Int64
	closes     atomic.Int64
	stalled    atomic.Bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{done: make(chan struct{}), err: errors.New(`device gone`)}
}

func (x *fakeTarget) ID() uint64            { return 1 }
func (x *fakeTarget) Stalled() bool         { return x.stalled.Load() }
func (x *fakeTarget) Err() error            { return x.err }
func (x *fakeTarget) Done() <-chan struct{} { return x.done }

func (x *fakeTarget) Restart() error {
	if x.restartErr != nil {
		return x.restartErr
	}
	x.restarts.Add(1)
	x.stalled.Store(false)
	return nil
}

func (x *fakeTarget) Close() error {
	x.closes.Add(1)
	x.closeOnce.Do(func() { close(x.done) })
	return nil
}

func TestRun_restartsThenGivesUp(t *testing.T) {
	target := newFakeTarget()

	// re-stall after every restart
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-target.done:
				return
			case <-ticker.C:
				target.stalled.Store(true)
			}
		}
	}()

	err := Run(context.Background(), target, &Config{
		Rates:    map[time.Duration]int{time.Minute: 2},
		Interval: time.Millisecond,
	})

	assert.ErrorIs(t, err, ErrGaveUp)
	assert.ErrorContains(t, err, `device gone`)
	assert.Equal(t, int64(2), target.restarts.Load())
	assert.Equal(t, int64(1), target.closes.Load())
}

func TestRun_targetClosed(t *testing.T) {
	target := newFakeTarget()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = target.Close()
	}()
	assert.NoError(t, Run(context.Background(), target, &Config{Interval: time.Millisecond}))
	assert.Zero(t, target.restarts.Load())
}

func TestRun_context(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Run(ctx, newFakeTarget(), nil), context.DeadlineExceeded)
}

func TestRun_restartError(t *testing.T) {
	target := newFakeTarget()
	target.stalled.Store(true)
	target.restartErr = errors.New(`nope`)

	err := Run(context.Background(), target, &Config{Interval: time.Millisecond})
	assert.ErrorIs(t, err, target.restartErr)
	assert.Zero(t, target.closes.Load())
}

func TestRun_restartErrorAfterClose(t *testing.T) {
	target := newFakeTarget()
	target.stalled.Store(true)
	target.restartErr = pingpong.ErrClosed
	_ = target.Close()

	// either branch observes the closed target
	assert.NoError(t, Run(context.Background(), target, &Config{Interval: time.Millisecond}))
}

func TestRun_panics(t *testing.T) {
	//lint:ignore SA1012 testing the panic
	assert.PanicsWithValue(t, `supervisor: nil context`, func() { _ = Run(nil, newFakeTarget(), nil) })
	assert.PanicsWithValue(t, `supervisor: nil target`, func() { _ = Run(context.Background(), nil, nil) })
}

func TestRun_session(t *testing.T) {
	ch := simchan.New(&simchan.Config{ChunkSize: 4})
	s, err := pingpong.New(ch, pingpong.WithSlotSize(8), pingpong.WithLogRateLimits(nil))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- Run(ctx, s, &Config{
			Rates:    map[time.Duration]int{time.Minute: 1},
			Interval: time.Millisecond,
		})
	}()

	errDevice := errors.New(`device reset`)
	for range 2 {
		require.NoError(t, ch.WaitPending(ctx, 1))
		_, err := ch.Fail(errDevice)
		require.NoError(t, err)
	}

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrGaveUp)
		assert.ErrorIs(t, err, errDevice)
	case <-ctx.Done():
		t.Fatal(`timed out`)
	}

	select {
	case <-s.Done():
	default:
		t.Error(`expected session to be closed`)
	}
	assert.Equal(t, uint64(1), s.Stats().Restarts)
}
