// Package portscan probes TCP ports across a bounded worker pool and
// reports which accept connections, with best-effort service naming
// and banner capture for greet-first protocols.
package portscan

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgeprobe/edgeprobe/pkg/config"
	"github.com/edgeprobe/edgeprobe/pkg/duration"
	"github.com/edgeprobe/edgeprobe/pkg/telemetry"
	"github.com/edgeprobe/edgeprobe/pkg/workerpool"
)

// HostResolver resolves a hostname to addresses. *net.Resolver
// satisfies it; tests inject synthetic resolvers.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Engine fans port probes out across a bounded pool. The pool is owned
// by the engine, so concurrent Scan calls share one admission counter
// and the in-flight bound holds engine-wide.
type Engine struct {
	opts     config.Options
	resolver HostResolver
	pool     *workerpool.Pool
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// Option customizes an Engine.
type Option func(*Engine)

// WithResolver replaces the DNS resolver.
func WithResolver(r HostResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithLogger attaches a logger for non-fatal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates opts and builds an Engine. Configuration errors
// surface here, before any network activity.
func NewEngine(opts config.Options, options ...Option) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts:     opts,
		resolver: net.DefaultResolver,
		pool:     workerpool.New(opts.ConcurrentLimit),
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

// Scan probes the given ports on host. An empty port list means the
// common-ports default; duplicates are probed once, first occurrence
// wins the slot. Results preserve the caller's port order regardless
// of completion order. Per-port failures are recorded, never fatal;
// only DNS resolution failure populates ScanResult.Error.
func (e *Engine) Scan(ctx context.Context, host string, ports []uint16) *ScanResult {
	start := time.Now()

	result := &ScanResult{
		ScanID: uuid.NewString(),
		Target: ScanTarget{Host: host},
	}

	if len(ports) == 0 {
		ports = CommonPorts()
	}
	ports = dedupPorts(ports)

	address, err := e.resolveOnce(ctx, host)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("resolution failed",
				slog.String("host", host),
				slog.String("error", err.Error()))
		}
		result.Error = ErrorKindDNSResolution
		result.Ports = []PortProbeResult{}
		result.ElapsedSeconds = time.Since(start).Seconds()
		return result
	}
	result.Target.ResolvedAddress = address

	// Buffered by index so arrival order never leaks into output.
	probes := make([]PortProbeResult, len(ports))

	for i, port := range ports {
		i, port := i, port
		if err := e.pool.Go(ctx, func() {
			probes[i] = probePort(ctx, address, port, e.opts.Timeout)
			e.observeProbe(probes[i])
		}); err != nil {
			// Batch cancelled while waiting for admission; the
			// remaining ports are marked, not dropped, so the
			// result stays one-entry-per-port.
			for j := i; j < len(ports); j++ {
				probes[j] = PortProbeResult{Port: ports[j], Error: ErrorKindCancelled}
			}
			break
		}
	}
	e.pool.Wait()

	result.Ports = probes
	result.ElapsedSeconds = time.Since(start).Seconds()
	return result
}

// ScanHosts scans several hosts. The returned slice preserves host
// order while hosts themselves complete in any order. One result is
// produced per host even when some fail.
func (e *Engine) ScanHosts(ctx context.Context, hosts []string, ports []uint16) []*ScanResult {
	results := make([]*ScanResult, len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			results[i] = e.Scan(gctx, host, ports)
			return nil
		})
	}
	// Workers never return errors; failures live in their results.
	_ = g.Wait()
	return results
}

// resolveOnce maps host to one address. Literal IPs pass through
// without a lookup.
func (e *Engine) resolveOnce(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}
	ctx, cancel := context.WithTimeout(ctx, duration.DNSLookup)
	defer cancel()

	addrs, err := e.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	return addrs[0], nil
}

func (e *Engine) observeProbe(p PortProbeResult) {
	switch {
	case p.Open:
		e.metrics.ObserveProbe("open")
	case p.Error == ErrorKindConnectionRefused || p.Error == ErrorKindConnectionTimeout:
		e.metrics.ObserveProbe("closed")
	default:
		e.metrics.ObserveProbe("error")
	}
}

func dedupPorts(ports []uint16) []uint16 {
	seen := make(map[uint16]bool, len(ports))
	out := make([]uint16, 0, len(ports))
	for _, p := range ports {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
