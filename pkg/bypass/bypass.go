// Package bypass infers active WAF blocking behavior by differential
// testing: one benign baseline request, then a set of requests carrying
// common attack-pattern payloads in controlled, inert form. A WAF that
// passes the baseline but rejects the crafted traffic gives itself away
// regardless of headers or branding.
//
// This is independent evidence from signature matching and is never
// merged into detection results automatically; callers combine the two
// signals explicitly.
package bypass

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
	"github.com/edgeprobe/edgeprobe/pkg/config"
	"github.com/edgeprobe/edgeprobe/pkg/duration"
	"github.com/edgeprobe/edgeprobe/pkg/httpclient"
	"github.com/edgeprobe/edgeprobe/pkg/iohelper"
	"github.com/edgeprobe/edgeprobe/pkg/jsonutil"
	"github.com/edgeprobe/edgeprobe/pkg/ratelimit"
	"github.com/edgeprobe/edgeprobe/pkg/telemetry"
)

// blockStatuses are the block-signaling codes. A 404 or 500 on a
// crafted request is not blocking evidence; only these are.
var blockStatuses = map[int]bool{
	http.StatusForbidden:          true, // 403
	http.StatusNotAcceptable:      true, // 406
	http.StatusTooManyRequests:    true, // 429
	http.StatusServiceUnavailable: true, // 503
}

// variant is one crafted request shape.
type variant struct {
	description string
	path        string
	header      http.Header
}

// variants carry attack-pattern payloads in inert form: nothing here
// executes anywhere, they only look hostile to pattern matchers.
var variants = []variant{
	{
		description: "path traversal tokens in query",
		path:        "/?file=..%2F..%2F..%2Fetc%2Fpasswd",
	},
	{
		description: "sql meta-characters in query",
		path:        "/?id=1%27%20OR%20%271%27%3D%271",
	},
	{
		description: "script tag in query",
		path:        "/?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E",
	},
	{
		description: "null byte in path",
		path:        "/index%00.html",
	},
	{
		description: "oversized header value",
		path:        "/",
		header:      http.Header{"X-Data": []string{strings.Repeat("A", 4096)}},
	},
}

// VariantResult records one crafted request.
type VariantResult struct {
	Description    string  `json:"description"`
	Status         int     `json:"status"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Blocked        bool    `json:"blocked"`
}

// Report is the outcome of one bypass test.
type Report struct {
	Target          string          `json:"target"`
	WAFDetected     bool            `json:"waf_detected"`
	BaselineStatus  int             `json:"baseline_status"`
	BlockedRequests []string        `json:"blocked_requests"`
	VariantResults  []VariantResult `json:"variant_results"`
}

// ToJSON serializes the report for export consumers.
func (r *Report) ToJSON() ([]byte, error) {
	return jsonutil.MarshalIndent(r, "  ")
}

// Tester runs the behavioral WAF test.
type Tester struct {
	opts    config.Options
	client  *http.Client
	pacer   *ratelimit.Pacer
	metrics *telemetry.Metrics
	markers []string
}

// Option customizes a Tester.
type Option func(*Tester)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) Option {
	return func(t *Tester) { t.client = c }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(t *Tester) { t.metrics = m }
}

// NewTester validates opts and builds a Tester.
func NewTester(opts config.Options, options ...Option) (*Tester, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := &Tester{
		opts: opts,
		client: httpclient.New(httpclient.Config{
			Timeout:            duration.HTTPBypassProbe,
			UserAgent:          opts.UserAgent,
			InsecureSkipVerify: true,
		}),
		pacer:   ratelimit.New(opts.DelayBetweenRequests, opts.RequestsPerSecond),
		markers: blockMarkers(),
	}
	for _, o := range options {
		o(t)
	}
	return t, nil
}

// TestBypass sends the baseline and every crafted variant against
// baseURL. A variant counts as blocked iff its status lands in the
// block-signaling range while the baseline succeeded, or its body
// carries a known block-page marker.
func (t *Tester) TestBypass(ctx context.Context, baseURL string) (*Report, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	report := &Report{
		Target:          baseURL,
		BlockedRequests: []string{},
		VariantResults:  make([]VariantResult, 0, len(variants)),
	}

	baselineStatus, _, _, err := t.request(ctx, baseURL+"/", nil)
	if err != nil {
		return nil, err
	}
	report.BaselineStatus = baselineStatus
	baselineOK := baselineStatus > 0 && !blockStatuses[baselineStatus]

	for _, v := range variants {
		if err := t.pacer.Wait(ctx); err != nil {
			return report, err
		}

		status, body, elapsed, err := t.request(ctx, baseURL+v.path, v.header)
		vr := VariantResult{
			Description:    v.description,
			Status:         status,
			ElapsedSeconds: elapsed,
		}
		if err == nil {
			vr.Blocked = t.classifyBlocked(status, body, baselineOK)
		}
		if vr.Blocked {
			report.BlockedRequests = append(report.BlockedRequests, v.description)
		}
		report.VariantResults = append(report.VariantResults, vr)
	}

	report.WAFDetected = len(report.BlockedRequests) > 0
	return report, nil
}

func (t *Tester) classifyBlocked(status int, body string, baselineOK bool) bool {
	if baselineOK && blockStatuses[status] {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range t.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (t *Tester) request(ctx context.Context, rawURL string, extra http.Header) (int, string, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", 0, err
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)
	for name, values := range extra {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		t.metrics.ObserveRequest("error", elapsed)
		return 0, "", elapsed, err
	}
	defer iohelper.DrainAndClose(resp.Body)
	t.metrics.ObserveRequest("ok", elapsed)

	body, _ := iohelper.ReadLimited(resp.Body, iohelper.SmallMaxBodySize)
	return resp.StatusCode, string(body), elapsed, nil
}

// blockMarkers collects every vendor block marker plus the generic
// set, lowercased once at construction.
func blockMarkers() []string {
	var markers []string
	for _, sig := range catalog.Signatures() {
		for _, m := range sig.BlockMarkers {
			markers = append(markers, strings.ToLower(m))
		}
	}
	for _, m := range catalog.GenericBlockMarkers() {
		markers = append(markers, strings.ToLower(m))
	}
	return markers
}
