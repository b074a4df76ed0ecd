//go:build linux

package region

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func newShared(size int) (*Region, error) {
	fd, err := unix.MemfdCreate("pingpong", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("region: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("region: ftruncate: %w", err)
	}

	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("region: mmap: %w", err)
	}

	return &Region{
		buf: buf,
		fd:  fd,
		release: func() error {
			return errors.Join(unix.Munmap(buf), unix.Close(fd))
		},
	}, nil
}
