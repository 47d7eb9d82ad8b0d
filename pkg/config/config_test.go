package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	opts := Default()
	require.NoError(t, opts.Validate())
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, 15*time.Second, opts.DetectTimeout)
	assert.Equal(t, 100, opts.ConcurrentLimit)
	assert.Zero(t, opts.DelayBetweenRequests)
	assert.NotEmpty(t, opts.UserAgent)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero timeout", func(o *Options) { o.Timeout = 0 }},
		{"negative timeout", func(o *Options) { o.Timeout = -time.Second }},
		{"zero detect timeout", func(o *Options) { o.DetectTimeout = 0 }},
		{"zero concurrency", func(o *Options) { o.ConcurrentLimit = 0 }},
		{"negative delay", func(o *Options) { o.DelayBetweenRequests = -time.Millisecond }},
		{"negative rps", func(o *Options) { o.RequestsPerSecond = -1 }},
		{"empty user agent", func(o *Options) { o.UserAgent = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	opts, err := Load([]byte(`
timeout: 1.5
concurrent_limit: 25
requests_per_second: 12.5
user_agent: probe/1.0
`))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 25, opts.ConcurrentLimit)
	assert.Equal(t, 12.5, opts.RequestsPerSecond)
	assert.Equal(t, "probe/1.0", opts.UserAgent)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().DetectTimeout, opts.DetectTimeout)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load([]byte("tiemout: 3\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load([]byte("concurrent_limit: -4\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadEmptyKeepsDefaults(t *testing.T) {
	opts, err := Load([]byte("timeout: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, Default().ConcurrentLimit, opts.ConcurrentLimit)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseFlagsMinimal(t *testing.T) {
	cli, err := ParseFlags([]string{"-u", "example.com"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", cli.Target)
	assert.Equal(t, "/", cli.Path)
	assert.False(t, cli.TraceDNS)
	assert.Equal(t, Default(), cli.Options)
}

func TestParseFlagsRequiresTarget(t *testing.T) {
	_, err := ParseFlags(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseFlagsOverrides(t *testing.T) {
	cli, err := ParseFlags([]string{
		"-target", "example.com",
		"-ports", "80,443",
		"-timeout", "0.5",
		"-c", "10",
		"-rps", "5",
		"-metrics-addr", "127.0.0.1:9109",
		"-trace-dns",
		"-json",
	})
	require.NoError(t, err)
	assert.Equal(t, "80,443", cli.Ports)
	assert.Equal(t, 500*time.Millisecond, cli.Options.Timeout)
	assert.Equal(t, 10, cli.Options.ConcurrentLimit)
	assert.Equal(t, 5.0, cli.Options.RequestsPerSecond)
	assert.Equal(t, "127.0.0.1:9109", cli.MetricsAddr)
	assert.True(t, cli.TraceDNS)
	assert.True(t, cli.JSON)
}

func TestParseFlagsConfigFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 9\nconcurrent_limit: 7\n"), 0o644))

	// File values apply when the flag is absent; an explicit flag wins.
	cli, err := ParseFlags([]string{"-u", "example.com", "-config", path, "-c", "42"})
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cli.Options.Timeout)
	assert.Equal(t, 42, cli.Options.ConcurrentLimit)
}

func TestParseFlagsBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nonsense_key: 1\n"), 0o644))

	_, err := ParseFlags([]string{"-u", "example.com", "-config", path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
}
