// Package httpclient provides the shared HTTP client factory for
// detection and bypass probing. Clients pool connections, never follow
// redirects (the redirect response itself is detection signal), and
// skip certificate verification by default since targets behind
// protection edges frequently present re-signed or mismatched certs.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/edgeprobe/edgeprobe/pkg/duration"
)

// Config holds HTTP client construction options.
type Config struct {
	// Timeout is the total request timeout.
	Timeout time.Duration

	// UserAgent set on outgoing requests by callers; carried here so
	// one Config describes the whole client surface.
	UserAgent string

	// InsecureSkipVerify skips TLS certificate verification.
	InsecureSkipVerify bool

	// Proxy is an optional HTTP/SOCKS5 proxy URL.
	Proxy string

	// MaxConnsPerHost caps connections per target host.
	MaxConnsPerHost int
}

// DefaultUserAgent imitates a desktop browser; a scanner UA gets
// filtered before the interesting headers ever come back.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultConfig returns defaults tuned for detection probing.
func DefaultConfig() Config {
	return Config{
		Timeout:            duration.HTTPDetection,
		UserAgent:          DefaultUserAgent,
		InsecureSkipVerify: true,
		MaxConnsPerHost:    5,
	}
}

// New builds an *http.Client from cfg. Zero values take defaults.
func New(cfg Config) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = duration.HTTPDetection
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 5
	}

	dialer := &net.Dialer{
		Timeout:   duration.ProbeConnect,
		KeepAlive: duration.DialKeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxConnsPerHost * 4,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     duration.IdleConn,
		TLSHandshakeTimeout: duration.TLSHandshake,
		ForceAttemptHTTP2:   true,
		DialContext:         dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// A 3xx from the edge is evidence; follow nothing.
			return http.ErrUseLastResponse
		},
	}
}
