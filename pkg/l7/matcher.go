package l7

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
	"github.com/edgeprobe/edgeprobe/pkg/dnstrace"
	"github.com/edgeprobe/edgeprobe/pkg/strutil"
)

// Matcher evaluates every catalog signature against one HTTP response
// and an optional DNS trace. It is stateless and safe for concurrent
// use. The matcher never emits Unknown; that fallback belongs to the
// orchestrator.
type Matcher struct {
	signatures []catalog.Signature
}

// NewMatcher builds a Matcher over the full catalog.
func NewMatcher() *Matcher {
	return &Matcher{signatures: catalog.Signatures()}
}

// Match evaluates each service independently and returns the ranked
// detections. Services with zero indicators are omitted entirely.
// Identical inputs always produce identical output, indicator order
// included.
func (m *Matcher) Match(headers http.Header, body string, statusCode int, trace *dnstrace.Result) []Detection {
	detections := make([]Detection, 0, 4)

	for _, sig := range m.signatures {
		indicators := m.evaluate(sig, headers, body, trace)
		if len(indicators) == 0 {
			continue
		}
		detections = append(detections, Detection{
			Service:    sig.Service,
			Confidence: Combine(indicators),
			Indicators: indicators,
		})
	}

	rankDetections(detections)
	return detections
}

// evaluate collects the indicators one signature earns from the
// response. At most one Header indicator per distinct header name, at
// most one Body and one DnsSuffix indicator per service.
func (m *Matcher) evaluate(sig catalog.Signature, headers http.Header, body string, trace *dnstrace.Result) []Indicator {
	var indicators []Indicator

	matchedHeaders := make(map[string]bool)

	for _, name := range sig.Headers {
		if headers.Get(name) == "" || matchedHeaders[name] {
			continue
		}
		matchedHeaders[name] = true
		indicators = append(indicators, Indicator{
			Source:      SourceHeader,
			Description: fmt.Sprintf("header %q present", name),
			Weight:      catalog.WeightHeader,
		})
	}

	// Deterministic order: walk the catalog's declared header names,
	// not the Go map.
	for _, name := range sortedKeys(sig.HeaderValues) {
		value := headers.Get(name)
		if value == "" || matchedHeaders[name] {
			continue
		}
		for _, substr := range sig.HeaderValues[name] {
			if strutil.ContainsFold(value, substr) {
				matchedHeaders[name] = true
				indicators = append(indicators, Indicator{
					Source:      SourceHeader,
					Description: fmt.Sprintf("header %q contains %q", name, substr),
					Weight:      catalog.WeightHeader,
				})
				break
			}
		}
	}

	for _, pattern := range sig.BodyPatterns {
		if strutil.ContainsFold(body, pattern) {
			indicators = append(indicators, Indicator{
				Source:      SourceBody,
				Description: fmt.Sprintf("body contains %q", pattern),
				Weight:      catalog.WeightBody,
			})
			break
		}
	}

	if trace != nil {
	chain:
		for _, hostname := range trace.Chain {
			for _, suffix := range sig.DNSSuffixes {
				if strutil.HasSuffixFold(hostname, suffix) {
					indicators = append(indicators, Indicator{
						Source:      SourceDNSSuffix,
						Description: fmt.Sprintf("cname %q matches %q", hostname, suffix),
						Weight:      catalog.WeightDNSSuffix,
					})
					break chain
				}
			}
		}
	}

	return indicators
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
