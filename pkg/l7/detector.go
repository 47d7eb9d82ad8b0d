// Package l7 detects Layer-7 protection services in front of a target:
// signature matching over response headers and body, DNS CNAME-chain
// evidence, confidence scoring, and a behavioral fallback for
// filtering that no catalog entry identifies.
package l7

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
	"github.com/edgeprobe/edgeprobe/pkg/config"
	"github.com/edgeprobe/edgeprobe/pkg/dnstrace"
	"github.com/edgeprobe/edgeprobe/pkg/httpclient"
	"github.com/edgeprobe/edgeprobe/pkg/iohelper"
	"github.com/edgeprobe/edgeprobe/pkg/ratelimit"
	"github.com/edgeprobe/edgeprobe/pkg/telemetry"
)

// behavioralStatuses are responses to an otherwise-benign request that
// suggest active filtering even without a vendor signature.
var behavioralStatuses = map[int]bool{
	http.StatusForbidden:       true, // 403
	http.StatusNotAcceptable:   true, // 406
	http.StatusTooManyRequests: true, // 429
}

// Detector orchestrates one detection: HTTP fetch, optional DNS trace,
// signature matching, scoring, Unknown fallback.
type Detector struct {
	opts    config.Options
	client  *http.Client
	matcher *Matcher
	tracer  *dnstrace.Tracer
	pacer   *ratelimit.Pacer
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// DetectorOption customizes a Detector.
type DetectorOption func(*Detector)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) DetectorOption {
	return func(d *Detector) { d.client = c }
}

// WithTracer replaces the DNS chain tracer.
func WithTracer(t *dnstrace.Tracer) DetectorOption {
	return func(d *Detector) { d.tracer = t }
}

// WithLogger attaches a logger for non-fatal diagnostics.
func WithLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) { d.logger = l }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) DetectorOption {
	return func(d *Detector) { d.metrics = m }
}

// NewDetector validates opts and builds a Detector. Configuration
// errors surface here, before any network activity.
func NewDetector(opts config.Options, options ...DetectorOption) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		opts: opts,
		client: httpclient.New(httpclient.Config{
			Timeout:            opts.DetectTimeout,
			UserAgent:          opts.UserAgent,
			InsecureSkipVerify: true,
		}),
		matcher: NewMatcher(),
		tracer:  dnstrace.New(nil, dnstrace.NewCache()),
		pacer:   ratelimit.New(opts.DelayBetweenRequests, opts.RequestsPerSecond),
	}
	for _, o := range options {
		o(d)
	}
	return d, nil
}

// Detect issues one request to host and classifies the response.
// port 0 picks the scheme default (443 for https, 80 for http); an
// empty path means "/". Request failure is reported in the result,
// not retried.
func (d *Detector) Detect(ctx context.Context, host string, port int, path string, traceDNS bool) *Result {
	targetURL, bareHost := buildURL(host, port, path)

	result := &Result{
		ScanID:     uuid.NewString(),
		Target:     bareHost,
		URL:        targetURL,
		Detections: []Detection{},
	}

	if traceDNS {
		result.DNSTrace = d.tracer.Trace(ctx, bareHost)
	}

	if err := d.pacer.Wait(ctx); err != nil {
		result.Error = ErrorKindRequestFailed
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		result.Error = ErrorKindRequestFailed
		return result
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := d.client.Do(req)
	result.ResponseSeconds = time.Since(start).Seconds()
	if err != nil {
		result.Error = ErrorKindRequestFailed
		d.metrics.ObserveRequest("error", result.ResponseSeconds)
		return result
	}
	defer iohelper.DrainAndClose(resp.Body)
	d.metrics.ObserveRequest("ok", result.ResponseSeconds)

	body := iohelper.ReadBodyOrLog(resp.Body, d.logger)

	result.StatusCode = resp.StatusCode
	result.Headers = flattenHeaders(resp.Header)

	result.Detections = d.matcher.Match(resp.Header, string(body), resp.StatusCode, result.DNSTrace)

	if len(result.Detections) == 0 {
		if ind, ok := behavioralFallback(resp.StatusCode, string(body)); ok {
			result.Detections = []Detection{{
				Service:    catalog.Unknown,
				Confidence: UnknownBehavioralWeight,
				Indicators: []Indicator{ind},
			}}
		}
	}

	for _, det := range result.Detections {
		d.metrics.ObserveDetection(string(det.Service))
	}
	return result
}

// behavioralFallback surfaces "something is filtering, vendor
// unidentified" instead of silently reporting unprotected.
func behavioralFallback(statusCode int, body string) (Indicator, bool) {
	if behavioralStatuses[statusCode] {
		return Indicator{
			Source:      SourceBehavioral,
			Description: fmt.Sprintf("status %d on a benign request", statusCode),
			Weight:      UnknownBehavioralWeight,
		}, true
	}
	lower := strings.ToLower(body)
	for _, marker := range catalog.GenericBlockMarkers() {
		if strings.Contains(lower, marker) {
			return Indicator{
				Source:      SourceBehavioral,
				Description: fmt.Sprintf("block-page marker %q in body", marker),
				Weight:      UnknownBehavioralWeight,
			}, true
		}
	}
	return Indicator{}, false
}

// buildURL normalizes the target into a full URL plus the bare host
// used for DNS tracing. Accepts a bare hostname, host:port, or a full
// URL; an explicit port argument beats one embedded in the host.
func buildURL(host string, port int, path string) (string, string) {
	scheme := ""
	rest := host
	if strings.Contains(host, "://") {
		parts := strings.SplitN(host, "://", 2)
		scheme = parts[0]
		rest = parts[1]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}

	bare := rest
	if h, p, err := net.SplitHostPort(rest); err == nil {
		bare = h
		if port == 0 {
			if pi, perr := strconv.Atoi(p); perr == nil {
				port = pi
			}
		}
	}

	if scheme == "" {
		if port == 80 {
			scheme = "http"
		} else {
			scheme = "https"
		}
	}

	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	hostPort := bare
	if port > 0 && !isDefaultPort(scheme, port) {
		hostPort = net.JoinHostPort(bare, strconv.Itoa(port))
	}
	return fmt.Sprintf("%s://%s%s", scheme, hostPort, path), bare
}

func isDefaultPort(scheme string, port int) bool {
	return (scheme == "https" && port == 443) || (scheme == "http" && port == 80)
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}
