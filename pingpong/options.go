// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pingpong

import (
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultSlotSize is the slot size used if WithSlotSize is not provided.
	DefaultSlotSize = 2048

	// DefaultCancelTimeout bounds Channel.Cancel, during Session.Close.
	DefaultCancelTimeout = 5 * time.Second
)

// DefaultLogRateLimits are the rates applied to repeated failure logs, per
// category, if WithLogRateLimits is not provided.
func DefaultLogRateLimits() map[time.Duration]int {
	return map[time.Duration]int{
		time.Second: 5,
		time.Minute: 60,
	}
}

// sessionOptions holds configuration options for Session creation.
type sessionOptions struct {
	logger        *logiface.Logger[logiface.Event]
	logRates      map[time.Duration]int
	slotSize      int
	cancelTimeout time.Duration
	readyNotifier bool
	sharedRegion  bool
}

// SessionOption configures a Session instance.
type SessionOption interface {
	applySession(*sessionOptions) error
}

// sessionOptionImpl implements SessionOption.
type sessionOptionImpl struct {
	applySessionFunc func(*sessionOptions) error
}

func (s *sessionOptionImpl) applySession(opts *sessionOptions) error {
	return s.applySessionFunc(opts)
}

// WithSlotSize sets the slot size, S. The region is 2 x S bytes.
func WithSlotSize(size int) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		if size <= 0 {
			return ErrSlotSize
		}
		opts.slotSize = size
		return nil
	}}
}

// WithLogger configures the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLogRateLimits sets the per-category rates used to throttle failure
// logs. A nil or empty map disables throttling.
// Panics (within New) if the rates are invalid, see catrate.NewLimiter.
func WithLogRateLimits(rates map[time.Duration]int) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		opts.logRates = rates
		return nil
	}}
}

// WithCancelTimeout bounds the call to Channel.Cancel made by Session.Close.
// Non-positive values disable the bound.
func WithCancelTimeout(d time.Duration) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		opts.cancelTimeout = d
		return nil
	}}
}

// WithReadyNotifier enables or disables the pollable readiness descriptor,
// see Session.ReadyFd. Enabled by default.
func WithReadyNotifier(enabled bool) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		opts.readyNotifier = enabled
		return nil
	}}
}

// WithSharedRegion enables or disables backing the region by a mappable
// memory file, see Session.RegionFd. Enabled by default. Where unsupported,
// the region is heap backed regardless.
func WithSharedRegion(enabled bool) SessionOption {
	return &sessionOptionImpl{func(opts *sessionOptions) error {
		opts.sharedRegion = enabled
		return nil
	}}
}

// resolveSessionOptions applies SessionOption instances to sessionOptions.
func resolveSessionOptions(opts []SessionOption) (*sessionOptions, error) {
	cfg := &sessionOptions{
		logRates:      DefaultLogRateLimits(),
		slotSize:      DefaultSlotSize,
		cancelTimeout: DefaultCancelTimeout,
		readyNotifier: true,
		sharedRegion:  true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySession(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
