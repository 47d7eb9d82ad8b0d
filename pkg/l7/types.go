package l7

import (
	"github.com/edgeprobe/edgeprobe/pkg/catalog"
	"github.com/edgeprobe/edgeprobe/pkg/dnstrace"
	"github.com/edgeprobe/edgeprobe/pkg/jsonutil"
)

// IndicatorSource classifies where a piece of evidence came from.
type IndicatorSource string

const (
	SourceHeader     IndicatorSource = "header"
	SourceBody       IndicatorSource = "body"
	SourceDNSSuffix  IndicatorSource = "dns_suffix"
	SourceBehavioral IndicatorSource = "behavioral"
)

// Policy constants. These are deliberately exported and documented:
// downstream consumers combining detections need the same thresholds
// the engine used.
const (
	// UnknownBehavioralWeight is the fixed confidence of the Unknown
	// fallback detection emitted when no catalog entry matched but
	// the response behaved like active filtering.
	UnknownBehavioralWeight = 0.5

	// MinProtectedConfidence is the floor below which a lone Unknown
	// detection does not count as "protected" in IsProtected.
	MinProtectedConfidence = 0.25
)

// Indicator is one discrete piece of evidence contributing to a
// detection. Weight is in (0,1].
type Indicator struct {
	Source      IndicatorSource `json:"source"`
	Description string          `json:"description"`
	Weight      float64         `json:"weight"`
}

// Detection is the aggregated evidence for one protection service.
// A result never holds two detections for the same service; indicators
// accumulate into one.
type Detection struct {
	Service    catalog.Service `json:"service"`
	Confidence float64         `json:"confidence"`
	Indicators []Indicator     `json:"indicators"`
}

// ErrorKind classifies a detection failure.
type ErrorKind string

const (
	// ErrorKindNone marks success; serialized as absence.
	ErrorKindNone ErrorKind = ""

	// ErrorKindRequestFailed covers connection errors, timeouts and
	// TLS failures on the detection request.
	ErrorKindRequestFailed ErrorKind = "http_request_failed"
)

// Result is one completed detection run.
type Result struct {
	ScanID          string            `json:"scan_id"`
	Target          string            `json:"target"`
	URL             string            `json:"url"`
	Detections      []Detection       `json:"detections"`
	Headers         map[string]string `json:"headers,omitempty"`
	StatusCode      int               `json:"status_code,omitempty"`
	ResponseSeconds float64           `json:"response_seconds"`
	DNSTrace        *dnstrace.Result  `json:"dns_trace,omitempty"`
	Error           ErrorKind         `json:"error,omitempty"`
}

// Primary returns the highest-confidence detection, if any. Ordering
// (and with it the tie-break) is fixed at match time.
func (r *Result) Primary() (Detection, bool) {
	if len(r.Detections) == 0 {
		return Detection{}, false
	}
	return r.Detections[0], true
}

// IsProtected reports whether the target sits behind a protection
// service: at least one detection, and not solely an Unknown fallback
// below MinProtectedConfidence.
func (r *Result) IsProtected() bool {
	if len(r.Detections) == 0 {
		return false
	}
	if len(r.Detections) == 1 {
		d := r.Detections[0]
		if d.Service == catalog.Unknown && d.Confidence < MinProtectedConfidence {
			return false
		}
	}
	return true
}

// ToJSON serializes the result for export consumers.
func (r *Result) ToJSON() ([]byte, error) {
	return jsonutil.MarshalIndent(r, "  ")
}
