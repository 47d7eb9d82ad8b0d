// Package duration provides canonical time constants for the codebase.
// Reference these instead of scattering hardcoded time.Duration values
// through the probing and detection paths.
package duration

import "time"

// Network probe timeouts.
const (
	// ProbeConnect bounds a single TCP connect attempt (3s).
	ProbeConnect = 3 * time.Second

	// BannerRead bounds the post-connect banner read on services
	// that greet first, like SSH and FTP (2s).
	BannerRead = 2 * time.Second

	// DNSLookup bounds one resolver round trip (5s).
	DNSLookup = 5 * time.Second
)

// HTTP timeouts.
const (
	// HTTPDetection is for the detection request against a possibly
	// slow protection edge (15s).
	HTTPDetection = 15 * time.Second

	// HTTPBypassProbe is for each crafted bypass-test request; block
	// pages render fast, so this is shorter than detection (10s).
	HTTPBypassProbe = 10 * time.Second

	// TLSHandshake bounds the TLS handshake inside the shared
	// transport (10s).
	TLSHandshake = 10 * time.Second
)

// Connection pool tuning.
const (
	// IdleConn is how long pooled connections stay idle before the
	// transport drops them (90s).
	IdleConn = 90 * time.Second

	// DialKeepAlive is the TCP keep-alive period on pooled dials (30s).
	DialKeepAlive = 30 * time.Second
)
