// Package config holds the validated option surface consumed by the
// probing and detection engines. Options are constructed and validated
// once, before any network activity; engines never re-check them.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgeprobe/edgeprobe/pkg/duration"
	"github.com/edgeprobe/edgeprobe/pkg/httpclient"
)

// Options is the full configuration surface recognized by the core.
type Options struct {
	// Timeout bounds one TCP connect during port scanning.
	Timeout time.Duration

	// DetectTimeout bounds one HTTP detection request.
	DetectTimeout time.Duration

	// ConcurrentLimit caps in-flight probes and requests.
	ConcurrentLimit int

	// DelayBetweenRequests is the cooperative pacing delay between
	// successive requests to the same target.
	DelayBetweenRequests time.Duration

	// RequestsPerSecond caps the sustained request rate to the same
	// target with a token bucket. Zero disables the cap.
	RequestsPerSecond float64

	// UserAgent is sent on every HTTP request.
	UserAgent string
}

// Default returns the documented defaults: 3s scan timeout, 15s
// detection timeout, 100 concurrent probes, no pacing delay.
func Default() Options {
	return Options{
		Timeout:              duration.ProbeConnect,
		DetectTimeout:        duration.HTTPDetection,
		ConcurrentLimit:      100,
		DelayBetweenRequests: 0,
		RequestsPerSecond:    0,
		UserAgent:            httpclient.DefaultUserAgent,
	}
}

// Validate rejects out-of-range options. All failures wrap
// ErrInvalidConfig.
func (o Options) Validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, o.Timeout)
	}
	if o.DetectTimeout <= 0 {
		return fmt.Errorf("%w: detect timeout must be positive, got %v", ErrInvalidConfig, o.DetectTimeout)
	}
	if o.ConcurrentLimit <= 0 {
		return fmt.Errorf("%w: concurrent limit must be positive, got %d", ErrInvalidConfig, o.ConcurrentLimit)
	}
	if o.DelayBetweenRequests < 0 {
		return fmt.Errorf("%w: delay between requests must not be negative, got %v", ErrInvalidConfig, o.DelayBetweenRequests)
	}
	if o.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative, got %v", ErrInvalidConfig, o.RequestsPerSecond)
	}
	if o.UserAgent == "" {
		return fmt.Errorf("%w: user agent must not be empty", ErrInvalidConfig)
	}
	return nil
}

// fileOptions is the YAML shape. Durations are plain seconds so config
// files stay language-neutral.
type fileOptions struct {
	TimeoutSeconds       *float64 `yaml:"timeout"`
	DetectTimeoutSeconds *float64 `yaml:"detect_timeout"`
	ConcurrentLimit      *int     `yaml:"concurrent_limit"`
	DelaySeconds         *float64 `yaml:"delay_between_requests"`
	RequestsPerSecond    *float64 `yaml:"requests_per_second"`
	UserAgent            *string  `yaml:"user_agent"`
}

// Load parses YAML option data on top of the defaults. Unknown keys
// are rejected (ErrUnknownField), invalid values too (ErrInvalidConfig).
func Load(data []byte) (Options, error) {
	opts := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fo fileOptions
	if err := dec.Decode(&fo); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return Options{}, fmt.Errorf("%w: %v", ErrUnknownField, err)
		}
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if fo.TimeoutSeconds != nil {
		opts.Timeout = secondsToDuration(*fo.TimeoutSeconds)
	}
	if fo.DetectTimeoutSeconds != nil {
		opts.DetectTimeout = secondsToDuration(*fo.DetectTimeoutSeconds)
	}
	if fo.ConcurrentLimit != nil {
		opts.ConcurrentLimit = *fo.ConcurrentLimit
	}
	if fo.DelaySeconds != nil {
		opts.DelayBetweenRequests = secondsToDuration(*fo.DelaySeconds)
	}
	if fo.RequestsPerSecond != nil {
		opts.RequestsPerSecond = *fo.RequestsPerSecond
	}
	if fo.UserAgent != nil {
		opts.UserAgent = *fo.UserAgent
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadFile reads and parses a YAML options file.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Load(data)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// CLI holds the command-line surface consumed by cmd/cli. The core
// never parses flags itself; this lives here so the flag names and the
// option names stay in one place.
type CLI struct {
	Options Options

	Target      string
	Ports       string
	Path        string
	TraceDNS    bool
	Bypass      bool
	JSON        bool
	Config      string
	MetricsAddr string
}

// ParseFlags parses command-line arguments into a validated CLI.
func ParseFlags(args []string) (*CLI, error) {
	cli := &CLI{Options: Default()}

	fs := flag.NewFlagSet("edgeprobe", flag.ContinueOnError)

	fs.StringVar(&cli.Target, "u", "", "Target host or URL")
	fs.StringVar(&cli.Target, "target", "", "Target host or URL (alias)")
	fs.StringVar(&cli.Ports, "ports", "", "Comma-separated ports to scan (empty = common ports)")
	fs.StringVar(&cli.Path, "path", "/", "Request path for detection")
	fs.BoolVar(&cli.TraceDNS, "trace-dns", false, "Trace the CNAME chain before detection")
	fs.BoolVar(&cli.Bypass, "bypass", false, "Run the WAF bypass behavioral test")
	fs.BoolVar(&cli.JSON, "json", false, "Emit JSON results")
	fs.StringVar(&cli.Config, "config", "", "YAML options file")
	fs.StringVar(&cli.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (empty = disabled)")

	timeout := fs.Float64("timeout", cli.Options.Timeout.Seconds(), "TCP connect timeout in seconds")
	detectTimeout := fs.Float64("detect-timeout", cli.Options.DetectTimeout.Seconds(), "HTTP detection timeout in seconds")
	climit := fs.Int("c", cli.Options.ConcurrentLimit, "Concurrent probe limit")
	delay := fs.Float64("delay", 0, "Delay between requests to the same target in seconds")
	rps := fs.Float64("rps", 0, "Requests-per-second cap for the same target (0 = uncapped)")
	userAgent := fs.String("ua", cli.Options.UserAgent, "User-Agent header")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cli.Config != "" {
		opts, err := LoadFile(cli.Config)
		if err != nil {
			return nil, err
		}
		cli.Options = opts
	}

	// Flags given explicitly beat the config file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["timeout"] || cli.Config == "" {
		cli.Options.Timeout = secondsToDuration(*timeout)
	}
	if set["detect-timeout"] || cli.Config == "" {
		cli.Options.DetectTimeout = secondsToDuration(*detectTimeout)
	}
	if set["c"] || cli.Config == "" {
		cli.Options.ConcurrentLimit = *climit
	}
	if set["delay"] || cli.Config == "" {
		cli.Options.DelayBetweenRequests = secondsToDuration(*delay)
	}
	if set["rps"] || cli.Config == "" {
		cli.Options.RequestsPerSecond = *rps
	}
	if set["ua"] || cli.Config == "" {
		cli.Options.UserAgent = *userAgent
	}

	if cli.Target == "" {
		return nil, fmt.Errorf("%w: target", ErrInvalidConfig)
	}
	if err := cli.Options.Validate(); err != nil {
		return nil, err
	}
	return cli, nil
}
