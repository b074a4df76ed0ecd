//go:build linux || darwin

package notify

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

func writeNotifyFd(fd int) error {
	// native endianness, as eventfd requires
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]

	_, err := unix.Write(fd, buf)
	if errors.Is(err, unix.EAGAIN) {
		err = nil
	}
	return err
}

func drainNotifyFd(fd int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(fd, buf[:]); err != nil {
			break
		}
	}
}

func closeNotifyFd(fd int) error {
	return unix.Close(fd)
}
