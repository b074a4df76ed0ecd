package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"github.com/joeycumines/go-pingpong/config"
	"github.com/joeycumines/go-pingpong/consumer"
	"github.com/joeycumines/go-pingpong/journal"
	"github.com/joeycumines/go-pingpong/pingpong"
	"github.com/joeycumines/go-pingpong/pingpong/simchan"
	"github.com/joeycumines/go-pingpong/supervisor"
	"github.com/joeycumines/stumpy"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sync/errgroup"
)

// report is the stats file written on exit.
type report struct {
	Started  time.Time      `json:"started"`
	Stopped  time.Time      `json:"stopped"`
	Error    string         `json:"error,omitempty"`
	Session  pingpong.Stats `json:"session"`
	ID       uint64         `json:"id"`
	Consumed uint64         `json:"consumed"`
	Journal  uint64         `json:"journal"`
}

func run(ctx context.Context, args []string, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet(`pingpongd`, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String(`config`, ``, `path to a TOML configuration file`)
		statsPath  = fs.String(`stats`, ``, `path to write a JSON stats snapshot to, on exit`)
		duration   = fs.Duration(`duration`, 0, `stop after this long, if positive`)
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != `` {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	level, err := cfg.Log.ParseLevel()
	if err != nil {
		return err
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(stderr)),
		stumpy.L.WithLevel(level),
	).Logger()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	ch := simchan.New(&simchan.Config{
		Source:    simchan.NewPatternReader(cfg.Device.Seed, cfg.Device.MaxRead),
		ChunkSize: cfg.Device.ChunkSize,
		Latency:   cfg.Device.Latency,
	})

	session, err := pingpong.New(
		ch,
		pingpong.WithSlotSize(cfg.Session.SlotSize),
		pingpong.WithCancelTimeout(cfg.Session.CancelTimeout),
		pingpong.WithSharedRegion(cfg.Session.SharedRegion),
		pingpong.WithReadyNotifier(cfg.Session.ReadyNotifier),
		pingpong.WithLogger(logger),
	)
	if err != nil {
		_ = ch.Cancel(context.Background())
		return err
	}

	rep := report{Started: time.Now().UTC(), ID: session.ID()}

	var j *journal.Journal
	if cfg.Journal.Path != `` {
		if j, err = journal.Open(ctx, cfg.Journal.Path); err != nil {
			return errors.Join(err, session.Close())
		}
	}

	var consumed, journalled atomic.Uint64
	handler := func(info pingpong.SlotInfo, data []byte) error {
		consumed.Add(1)
		if j == nil {
			return nil
		}
		// the group context is done on shutdown, recording must still finish
		if _, err := j.Record(context.WithoutCancel(ctx), session.ID(), info, data); err != nil {
			return err
		}
		journalled.Add(1)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return drain(gctx, session, handler, cfg.Supervisor.Interval)
	})

	g.Go(func() error {
		err := supervisor.Run(gctx, session, &supervisor.Config{
			Logger:   logger,
			Rates:    map[time.Duration]int{time.Minute: cfg.Supervisor.MaxRestartsPerMinute},
			Interval: cfg.Supervisor.Interval,
		})
		if errors.Is(err, supervisor.ErrGaveUp) {
			return err
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	err = errors.Join(err, session.Close())
	if j != nil {
		err = errors.Join(err, j.Close())
	}

	rep.Stopped = time.Now().UTC()
	rep.Session = session.Stats()
	rep.Consumed = consumed.Load()
	rep.Journal = journalled.Load()
	if err != nil {
		rep.Error = err.Error()
	}

	logger.Info().
		Uint64(`consumed`, rep.Consumed).
		Uint64(`bytes`, rep.Session.Bytes).
		Dur(`elapsed`, rep.Stopped.Sub(rep.Started)).
		Log(`pingpongd: stopped`)

	if *statsPath != `` {
		if e := writeReport(*statsPath, &rep); e != nil {
			err = errors.Join(err, e)
		}
	}

	return err
}

// drain consumes the session until it is closed, or ctx is done, riding out
// stalls (the supervisor restarts or closes the session).
func drain(ctx context.Context, session *pingpong.Session, handler consumer.Handler, interval time.Duration) error {
	for {
		err := consumer.Drain(ctx, session, handler)
		switch {
		case errors.Is(err, pingpong.ErrClosed):
			return nil
		case !errors.Is(err, pingpong.ErrStalled):
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-session.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func writeReport(path string, rep *report) error {
	b, err := sonnet.Marshal(rep)
	if err != nil {
		return fmt.Errorf("pingpongd: encode stats: %w", err)
	}
	if err := renameio.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("pingpongd: write stats: %w", err)
	}
	return nil
}
