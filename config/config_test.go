package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_empty(t *testing.T) {
	cfg, err := Parse(``)
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), *cfg); diff != `` {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[session]
slot_size = 4096
cancel_timeout = "250ms"
shared_region = false

[device]
chunk_size = 1000
max_read = 7
latency = "1ms"
seed = 200

[log]
level = "DEBUG"

[journal]
path = "/tmp/journal.db"

[supervisor]
interval = "1s"
max_restarts_per_minute = 10
`)
	require.NoError(t, err)

	want := Default()
	want.Session.SlotSize = 4096
	want.Session.CancelTimeout = 250 * time.Millisecond
	want.Session.SharedRegion = false
	want.Device = Device{ChunkSize: 1000, MaxRead: 7, Latency: time.Millisecond, Seed: 200}
	want.Log.Level = `DEBUG`
	want.Journal.Path = `/tmp/journal.db`
	want.Supervisor = Supervisor{Interval: time.Second, MaxRestartsPerMinute: 10}

	if diff := cmp.Diff(want, *cfg); diff != `` {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestParse_unknownKeys(t *testing.T) {
	_, err := Parse("[session]\nslot_sise = 1\n\n[other]\nx = 1\n")
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown keys`)
	assert.ErrorContains(t, err, `session.slot_sise`)
	assert.ErrorContains(t, err, `other.x`)
}

func TestParse_syntax(t *testing.T) {
	_, err := Parse(`[session`)
	assert.ErrorContains(t, err, `config: decode`)
}

func TestConfig_Validate(t *testing.T) {
	for _, tc := range [...]struct {
		name   string
		mutate func(cfg *Config)
		errs   []string
	}{
		{`default`, func(*Config) {}, nil},
		{`zero slot size`, func(cfg *Config) { cfg.Session.SlotSize = 0 }, []string{`session.slot_size must be positive`}},
		{`huge slot size`, func(cfg *Config) { cfg.Session.SlotSize = 1 << 62 }, []string{`too large`}},
		{`negative cancel timeout`, func(cfg *Config) { cfg.Session.CancelTimeout = -1 }, []string{`session.cancel_timeout`}},
		{`zero chunk size`, func(cfg *Config) { cfg.Device.ChunkSize = 0 }, []string{`device.chunk_size`}},
		{`negative max read`, func(cfg *Config) { cfg.Device.MaxRead = -1 }, []string{`device.max_read`}},
		{`negative latency`, func(cfg *Config) { cfg.Device.Latency = -time.Second }, []string{`device.latency`}},
		{`bad level`, func(cfg *Config) { cfg.Log.Level = `loud` }, []string{`log.level`}},
		{`zero interval`, func(cfg *Config) { cfg.Supervisor.Interval = 0 }, []string{`supervisor.interval`}},
		{`zero restarts`, func(cfg *Config) { cfg.Supervisor.MaxRestartsPerMinute = 0 }, []string{`supervisor.max_restarts_per_minute`}},
		{`several`, func(cfg *Config) {
			cfg.Session.SlotSize = -1
			cfg.Device.ChunkSize = -1
			cfg.Log.Level = ``
		}, []string{`session.slot_size`, `device.chunk_size`, `log.level`}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if len(tc.errs) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, s := range tc.errs {
				assert.ErrorContains(t, err, s)
			}
		})
	}
}

func TestLog_ParseLevel(t *testing.T) {
	for _, tc := range [...]struct {
		in   string
		want logiface.Level
		ok   bool
	}{
		{`disabled`, logiface.LevelDisabled, true},
		{`emerg`, logiface.LevelEmergency, true},
		{`err`, logiface.LevelError, true},
		{` Warning `, logiface.LevelWarning, true},
		{`info`, logiface.LevelInformational, true},
		{`debug`, logiface.LevelDebug, true},
		{`trace`, logiface.LevelTrace, true},
		{`error`, logiface.LevelDisabled, false},
		{``, logiface.LevelDisabled, false},
	} {
		t.Run(tc.in, func(t *testing.T) {
			level, err := Log{Level: tc.in}.ParseLevel()
			assert.Equal(t, tc.want, level)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), `pingpongd.toml`)
	require.NoError(t, os.WriteFile(path, []byte("[session]\nslot_size = 64\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Session.SlotSize)

	_, err = Load(filepath.Join(t.TempDir(), `missing.toml`))
	assert.ErrorContains(t, err, `missing.toml`)
}
