// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package notify provides a pollable readiness descriptor: an eventfd on
// Linux, a self-pipe on Darwin, and nothing elsewhere.
package notify

import (
	"errors"
	"sync"
)

// Notifier is a level-ish readiness signal, readable (by poll, select, epoll,
// or kqueue) after Signal, until Drain. The zero value is not usable, see New
// and Disabled.
type Notifier struct {
	mu      sync.RWMutex
	readFd  int
	writeFd int
	closed  bool
}

// New creates a Notifier backed by a non-blocking, close-on-exec descriptor.
// Platforms without one get a disabled notifier.
func New() (*Notifier, error) {
	readFd, writeFd, err := createNotifyFd()
	if err != nil {
		return nil, err
	}
	return &Notifier{readFd: readFd, writeFd: writeFd}, nil
}

// Disabled returns a Notifier without a descriptor. All methods are no-ops.
func Disabled() *Notifier {
	return &Notifier{readFd: -1, writeFd: -1}
}

// Fd returns the descriptor to poll for readability, or -1.
func (x *Notifier) Fd() int {
	return x.readFd
}

// Signal makes the descriptor readable. A full counter or pipe is already
// readable, so EAGAIN is not an error.
func (x *Notifier) Signal() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed || x.writeFd < 0 {
		return nil
	}

	return writeNotifyFd(x.writeFd)
}

// Drain consumes all pending signals, leaving the descriptor unreadable.
func (x *Notifier) Drain() {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed || x.readFd < 0 {
		return
	}
	drainNotifyFd(x.readFd)
}

// Close releases the descriptor(s). Subsequent calls are no-ops.
func (x *Notifier) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	if x.readFd < 0 {
		return nil
	}
	err := closeNotifyFd(x.readFd)
	if x.writeFd != x.readFd {
		err = errors.Join(err, closeNotifyFd(x.writeFd))
	}
	return err
}
