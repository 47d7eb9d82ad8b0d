package l7

import "errors"

// Sentinel errors for detection failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrRequestFailed indicates the detection request could not
	// complete (connection error, timeout, TLS failure). The
	// corresponding Result carries ErrorKindRequestFailed.
	ErrRequestFailed = errors.New("l7: detection request failed")
)
