// Package supervisor restarts stalled pingpong sessions, within a rate limit,
// and gives up (closing the session) once the limit is exceeded.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// ErrGaveUp is returned by Run after closing a session that stalled more often
// than the configured rates allow.
var ErrGaveUp = errors.New("supervisor: restart rate exceeded, gave up")

type (
	// Target is the subset of *pingpong.Session used by Run.
	Target interface {
		ID() uint64
		Stalled() bool
		Err() error
		Restart() error
		Done() <-chan struct{}
		Close() error
	}

	// Config models optional configuration for Run.
	Config struct {
		// Logger is used to log restarts, and giving up. Nil disables logging.
		Logger *logiface.Logger[logiface.Event]

		// Limiter decides whether each restart is allowed, keyed by the
		// target's ID, so one limiter may be shared across targets. Takes
		// precedence over Rates.
		Limiter *catrate.Limiter

		// Rates configures a limiter, if Limiter is nil.
		//
		// Defaults to 3 per minute, if nil.
		Rates map[time.Duration]int

		// Interval is how often the target is checked.
		//
		// Defaults to 50ms, if 0.
		Interval time.Duration
	}
)

// DefaultRates is the default value of Config.Rates.
func DefaultRates() map[time.Duration]int {
	return map[time.Duration]int{time.Minute: 3}
}

// Run watches target until it is closed, or ctx is done, restarting it each
// time it stalls. If a restart is refused by the rate limit, the target is
// closed, and an error wrapping ErrGaveUp, and the stall error, is returned.
// Returns nil if the target was closed by something else.
//
// The cfg parameter is optional, and may be nil, in which case the documented
// defaults will be used. Providing a nil ctx or target will cause a panic.
func Run(ctx context.Context, target Target, cfg *Config) error {
	if ctx == nil {
		panic(`supervisor: nil context`)
	}
	if target == nil {
		panic(`supervisor: nil target`)
	}

	var (
		logger   *logiface.Logger[logiface.Event]
		limiter  *catrate.Limiter
		rates    = DefaultRates()
		interval = 50 * time.Millisecond
	)
	if cfg != nil {
		logger = cfg.Logger
		limiter = cfg.Limiter
		if cfg.Rates != nil {
			rates = cfg.Rates
		}
		if cfg.Interval != 0 {
			interval = cfg.Interval
		}
	}
	if limiter == nil {
		limiter = catrate.NewLimiter(rates)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	id := target.ID()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-target.Done():
			return nil
		case <-ticker.C:
		}

		if !target.Stalled() {
			continue
		}

		cause := target.Err()

		if next, ok := limiter.Allow(id); !ok {
			logger.Err().
				Err(cause).
				Uint64(`session`, id).
				Str(`next_allowed`, next.Format(time.RFC3339)).
				Log(`supervisor: restart rate exceeded, closing session`)
			return errors.Join(fmt.Errorf("%w: %w", ErrGaveUp, cause), target.Close())
		}

		if err := target.Restart(); err != nil {
			select {
			case <-target.Done():
				return nil
			default:
				return fmt.Errorf("supervisor: restart: %w", err)
			}
		}

		logger.Warning().
			Err(cause).
			Uint64(`session`, id).
			Log(`supervisor: restarted stalled session`)
	}
}
