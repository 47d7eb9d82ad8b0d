package portscan

import (
	"github.com/edgeprobe/edgeprobe/pkg/jsonutil"
)

// ErrorKind classifies a localized failure. Per-port kinds are
// recorded on the probe result and are never fatal to the scan.
type ErrorKind string

const (
	// ErrorKindNone marks success; serialized as absence.
	ErrorKindNone ErrorKind = ""

	// ErrorKindConnectionRefused means the target answered with RST.
	ErrorKindConnectionRefused ErrorKind = "connection_refused"

	// ErrorKindConnectionTimeout means no answer within the timeout.
	ErrorKindConnectionTimeout ErrorKind = "connection_timeout"

	// ErrorKindDNSResolution means the target hostname did not
	// resolve; fatal to the whole ScanResult.
	ErrorKindDNSResolution ErrorKind = "dns_resolution_failed"

	// ErrorKindCancelled means the caller aborted the batch before
	// this probe ran.
	ErrorKindCancelled ErrorKind = "cancelled"

	// ErrorKindInternal covers unexpected faults.
	ErrorKindInternal ErrorKind = "internal"
)

// ScanTarget is the resolved scan subject. Resolution happens once per
// scan invocation; the value is immutable afterwards.
type ScanTarget struct {
	Host            string `json:"host"`
	ResolvedAddress string `json:"resolved_address,omitempty"`
}

// PortProbeResult is the outcome of probing one port. Exactly one is
// produced per distinct requested port.
type PortProbeResult struct {
	Port         uint16    `json:"port"`
	Open         bool      `json:"open"`
	ServiceGuess string    `json:"service_guess,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	Error        ErrorKind `json:"error,omitempty"`
}

// ScanResult aggregates one scan invocation. Ports follow the
// caller-supplied order, not completion order.
type ScanResult struct {
	ScanID         string            `json:"scan_id"`
	Target         ScanTarget        `json:"target"`
	Ports          []PortProbeResult `json:"ports"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Error          ErrorKind         `json:"error,omitempty"`
}

// OpenCount returns the number of open ports in the result.
func (r *ScanResult) OpenCount() int {
	n := 0
	for _, p := range r.Ports {
		if p.Open {
			n++
		}
	}
	return n
}

// ToJSON serializes the result for export consumers.
func (r *ScanResult) ToJSON() ([]byte, error) {
	return jsonutil.MarshalIndent(r, "  ")
}
