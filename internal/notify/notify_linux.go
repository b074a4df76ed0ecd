//go:build linux

package notify

import (
	"golang.org/x/sys/unix"
)

// createNotifyFd creates an eventfd, returned as both read and write ends.
func createNotifyFd() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}
