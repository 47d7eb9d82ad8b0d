// Package iohelper provides helpers for safely reading network payloads
// with size limits, so a hostile endpoint cannot exhaust memory by
// streaming an unbounded response or banner.
package iohelper

import (
	"io"
	"log/slog"
)

// Body size limits.
const (
	// BannerMaxSize caps a TCP service banner read (1KB).
	BannerMaxSize int64 = 1024

	// SmallMaxBodySize is for block pages and status responses (8KB).
	SmallMaxBodySize int64 = 8 * 1024

	// DefaultMaxBodySize is for detection responses (1MB). Signature
	// matching never needs more than this.
	DefaultMaxBodySize int64 = 1024 * 1024
)

// ReadLimited reads from r up to maxSize bytes. A nil reader yields an
// empty slice and no error.
func ReadLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyOrLog reads a response body with the default limit and logs
// the error, if any, to logger. Returns whatever was read.
func ReadBodyOrLog(r io.Reader, logger *slog.Logger) []byte {
	data, err := ReadLimited(r, DefaultMaxBodySize)
	if err != nil && logger != nil {
		logger.Warn("body read failed", slog.String("error", err.Error()))
	}
	return data
}

// DrainAndClose reads any remaining data from r and closes it if it is
// a ReadCloser, so the underlying connection can be reused for
// keep-alive. Always returns nil to allow use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
