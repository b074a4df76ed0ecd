//go:build linux || darwin

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func readable(t *testing.T, fd int) bool {
	t.Helper()
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		require.NoError(t, err)
		return n == 1 && fds[0].Revents&unix.POLLIN != 0
	}
}

func TestNotifier_SignalDrain(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	defer func() { assert.NoError(t, x.Close()) }()

	fd := x.Fd()
	require.GreaterOrEqual(t, fd, 0)
	assert.False(t, readable(t, fd))

	for range 3 {
		require.NoError(t, x.Signal())
	}
	assert.True(t, readable(t, fd))

	x.Drain()
	assert.False(t, readable(t, fd))

	// drain is safe when already empty
	x.Drain()
	assert.False(t, readable(t, fd))

	require.NoError(t, x.Signal())
	assert.True(t, readable(t, fd))
}

func TestNotifier_nonBlocking(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	defer func() { assert.NoError(t, x.Close()) }()

	flags, err := unix.FcntlInt(uintptr(x.Fd()), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.O_NONBLOCK)

	flags, err = unix.FcntlInt(uintptr(x.Fd()), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.FD_CLOEXEC)
}
