package portscan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/edgeprobe/edgeprobe/pkg/duration"
	"github.com/edgeprobe/edgeprobe/pkg/iohelper"
	"github.com/edgeprobe/edgeprobe/pkg/strutil"
)

// serviceNames is the static port-to-name table behind ServiceGuess.
// A guess is a lookup, not protocol-verified.
var serviceNames = map[uint16]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	111:  "rpcbind",
	135:  "msrpc",
	139:  "netbios-ssn",
	143:  "imap",
	443:  "https",
	445:  "microsoft-ds",
	993:  "imaps",
	995:  "pop3s",
	1723: "pptp",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	5900: "vnc",
	6379: "redis",
	8080: "http-proxy",
	8443: "https-alt",
}

// bannerPorts are greet-first protocols worth a short read after
// connect. HTTP-family ports are excluded: they say nothing until
// spoken to.
var bannerPorts = map[uint16]bool{
	21:  true,
	22:  true,
	25:  true,
	110: true,
	143: true,
}

// commonPorts is the default probe list when the caller supplies none.
var commonPorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445,
	993, 995, 1723, 3306, 3389, 5432, 5900, 6379, 8080, 8443,
}

// CommonPorts returns a copy of the default port list.
func CommonPorts() []uint16 {
	out := make([]uint16, len(commonPorts))
	copy(out, commonPorts)
	return out
}

// ServiceGuess returns the static service name for port, if known.
func ServiceGuess(port uint16) string {
	return serviceNames[port]
}

// probePort attempts one TCP connect to address:port. Refusal and
// timeout come back as closed-with-kind, never as a Go error; the
// engine treats only DNS failure as fatal.
func probePort(ctx context.Context, address string, port uint16, timeout time.Duration) PortProbeResult {
	result := PortProbeResult{
		Port:         port,
		ServiceGuess: serviceNames[port],
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(int(port))))
	if err != nil {
		result.Error = classifyDialError(err)
		return result
	}
	defer conn.Close()

	result.Open = true

	if bannerPorts[port] {
		// A failed banner read never flips Open back to false.
		if banner := readBanner(conn); banner != "" {
			result.Banner = banner
		}
	}
	return result
}

// readBanner grabs whatever the service volunteers right after
// connect, bounded by its own deadline and size limit.
func readBanner(conn net.Conn) string {
	if err := conn.SetReadDeadline(time.Now().Add(duration.BannerRead)); err != nil {
		return ""
	}
	buf := make([]byte, iohelper.BannerMaxSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return ""
	}
	banner := strings.TrimSpace(string(buf[:n]))
	return strutil.Truncate(banner, 256)
}

func classifyDialError(err error) ErrorKind {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorKindConnectionRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindConnectionTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindCancelled
	}
	return ErrorKindInternal
}
