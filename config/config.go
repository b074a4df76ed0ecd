// Package config loads the pingpongd configuration, from TOML.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/go-pingpong/pingpong"
	"github.com/joeycumines/go-pingpong/pingpong/simchan"
	"github.com/joeycumines/logiface"
	"github.com/pbnjay/memory"
)

// Config is the root of the configuration file.
type Config struct {
	Session    Session    `toml:"session"`
	Device     Device     `toml:"device"`
	Log        Log        `toml:"log"`
	Journal    Journal    `toml:"journal"`
	Supervisor Supervisor `toml:"supervisor"`
}

// Session configures the pingpong.Session.
type Session struct {
	// SlotSize is S. Defaults to pingpong.DefaultSlotSize, if 0.
	SlotSize int `toml:"slot_size"`
	// CancelTimeout bounds channel cancellation on close.
	CancelTimeout time.Duration `toml:"cancel_timeout"`
	// SharedRegion backs the region with a mappable memory file.
	SharedRegion bool `toml:"shared_region"`
	// ReadyNotifier enables the pollable readiness descriptor.
	ReadyNotifier bool `toml:"ready_notifier"`
}

// Device configures the simulated device channel.
type Device struct {
	// ChunkSize is the transfer size. Defaults to simchan.DefaultChunkSize,
	// if 0.
	ChunkSize int `toml:"chunk_size"`
	// MaxRead limits the bytes delivered per transfer, simulating short
	// transfers, if positive.
	MaxRead int `toml:"max_read"`
	// Latency is the delay before each transfer completes.
	Latency time.Duration `toml:"latency"`
	// Seed is the first byte of the generated pattern.
	Seed uint8 `toml:"seed"`
}

// Log configures logging.
type Log struct {
	// Level is a syslog keyword, e.g. "info", or "disabled".
	Level string `toml:"level"`
}

// Journal configures the SQLite hand-off journal.
type Journal struct {
	// Path of the database, empty disables the journal.
	Path string `toml:"path"`
}

// Supervisor configures the stall supervisor.
type Supervisor struct {
	// Interval between stall checks.
	Interval time.Duration `toml:"interval"`
	// MaxRestartsPerMinute is the restart budget, before giving up.
	MaxRestartsPerMinute int `toml:"max_restarts_per_minute"`
}

// Default returns the configuration used for any value not set in the file.
func Default() Config {
	return Config{
		Session: Session{
			SlotSize:      pingpong.DefaultSlotSize,
			CancelTimeout: pingpong.DefaultCancelTimeout,
			SharedRegion:  true,
			ReadyNotifier: true,
		},
		Device: Device{
			ChunkSize: simchan.DefaultChunkSize,
		},
		Log: Log{
			Level: logiface.LevelInformational.String(),
		},
		Supervisor: Supervisor{
			Interval:             50 * time.Millisecond,
			MaxRestartsPerMinute: 3,
		},
	}
}

// Load decodes the file at path over Default, then validates the result.
// Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return finish(&cfg, md)
}

// Parse is like Load, but decodes from a string.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return finish(&cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values. The region (two
// slots) must fit within a quarter of physical memory, where known.
func (x *Config) Validate() error {
	var errs []error
	if x.Session.SlotSize <= 0 {
		errs = append(errs, fmt.Errorf("config: session.slot_size must be positive: %d", x.Session.SlotSize))
	} else if total := memory.TotalMemory(); total != 0 && uint64(x.Session.SlotSize)*2 > total/4 {
		errs = append(errs, fmt.Errorf("config: session.slot_size %d too large for %d bytes of memory", x.Session.SlotSize, total))
	}
	if x.Session.CancelTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: session.cancel_timeout must not be negative: %s", x.Session.CancelTimeout))
	}
	if x.Device.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("config: device.chunk_size must be positive: %d", x.Device.ChunkSize))
	}
	if x.Device.MaxRead < 0 {
		errs = append(errs, fmt.Errorf("config: device.max_read must not be negative: %d", x.Device.MaxRead))
	}
	if x.Device.Latency < 0 {
		errs = append(errs, fmt.Errorf("config: device.latency must not be negative: %s", x.Device.Latency))
	}
	if _, err := x.Log.ParseLevel(); err != nil {
		errs = append(errs, err)
	}
	if x.Supervisor.Interval <= 0 {
		errs = append(errs, fmt.Errorf("config: supervisor.interval must be positive: %s", x.Supervisor.Interval))
	}
	if x.Supervisor.MaxRestartsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("config: supervisor.max_restarts_per_minute must be positive: %d", x.Supervisor.MaxRestartsPerMinute))
	}
	return errors.Join(errs...)
}

// ParseLevel converts Level to a logiface.Level, accepting the keywords
// returned by logiface.Level.String.
func (x Log) ParseLevel() (logiface.Level, error) {
	want := strings.ToLower(strings.TrimSpace(x.Level))
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == want {
			return level, nil
		}
	}
	return logiface.LevelDisabled, fmt.Errorf("config: unknown log.level: %q", x.Level)
}
