package l7

import (
	"math"
	"net/http"
	"reflect"
	"testing"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
	"github.com/edgeprobe/edgeprobe/pkg/dnstrace"
)

func TestMatchCloudflareHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Cf-Ray", "8f2a1c-IAD")
	headers.Set("Server", "cloudflare")

	detections := NewMatcher().Match(headers, "", http.StatusOK, nil)

	if len(detections) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(detections), detections)
	}
	d := detections[0]
	if d.Service != catalog.Cloudflare {
		t.Fatalf("service = %q, want Cloudflare", d.Service)
	}
	// cf-ray presence plus server value: two header indicators.
	if len(d.Indicators) != 2 {
		t.Errorf("got %d indicators, want 2: %+v", len(d.Indicators), d.Indicators)
	}
	want := 1 - (1-catalog.WeightHeader)*(1-catalog.WeightHeader)
	if math.Abs(d.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", d.Confidence, want)
	}
}

func TestMatchNothing(t *testing.T) {
	headers := http.Header{}
	headers.Set("Server", "nginx/1.25.3")
	headers.Set("Content-Type", "text/html")

	detections := NewMatcher().Match(headers, "<html><body>welcome</body></html>", http.StatusOK, nil)

	if len(detections) != 0 {
		t.Errorf("clean response produced detections: %+v", detections)
	}
}

func TestMatchDNSSuffix(t *testing.T) {
	trace := &dnstrace.Result{
		Chain: []string{"www.example.com", "d111abcdef8.cloudfront.net"},
	}

	detections := NewMatcher().Match(http.Header{}, "", http.StatusOK, trace)

	if len(detections) != 1 {
		t.Fatalf("got %d detections, want 1: %+v", len(detections), detections)
	}
	d := detections[0]
	if d.Service != catalog.AWSWAF {
		t.Fatalf("service = %q, want AWS WAF", d.Service)
	}
	if len(d.Indicators) != 1 || d.Indicators[0].Source != SourceDNSSuffix {
		t.Fatalf("indicators = %+v, want one dns_suffix", d.Indicators)
	}
	if d.Indicators[0].Weight != catalog.WeightDNSSuffix {
		t.Errorf("dns indicator weight = %v, want %v", d.Indicators[0].Weight, catalog.WeightDNSSuffix)
	}
}

func TestMatchBodyPattern(t *testing.T) {
	body := "<html><title>Attention Required! | Cloudflare</title></html>"

	detections := NewMatcher().Match(http.Header{}, body, http.StatusForbidden, nil)

	if len(detections) != 1 || detections[0].Service != catalog.Cloudflare {
		t.Fatalf("detections = %+v, want Cloudflare from body", detections)
	}
	// Two body patterns match but a service earns at most one body
	// indicator.
	bodyCount := 0
	for _, i := range detections[0].Indicators {
		if i.Source == SourceBody {
			bodyCount++
		}
	}
	if bodyCount != 1 {
		t.Errorf("got %d body indicators, want 1", bodyCount)
	}
}

func TestMatchMultipleServicesRanked(t *testing.T) {
	headers := http.Header{}
	headers.Set("Cf-Ray", "8f2a1c-IAD")
	headers.Set("Server", "cloudflare")
	headers.Set("X-Iinfo", "5-1234")

	detections := NewMatcher().Match(headers, "", http.StatusOK, nil)

	if len(detections) < 2 {
		t.Fatalf("got %d detections, want at least 2", len(detections))
	}
	if detections[0].Service != catalog.Cloudflare {
		t.Errorf("primary = %q, want Cloudflare (two indicators beat one)", detections[0].Service)
	}
	for i := 1; i < len(detections); i++ {
		if detections[i].Confidence > detections[i-1].Confidence {
			t.Errorf("detections not sorted by confidence: %v after %v",
				detections[i].Confidence, detections[i-1].Confidence)
		}
	}
}

func TestMatchDeterministic(t *testing.T) {
	headers := http.Header{}
	headers.Set("Cf-Ray", "abc")
	headers.Set("Server", "cloudflare")
	headers.Set("Via", "fastly")
	headers.Set("X-Served-By", "cache-iad-kiad7000041")
	trace := &dnstrace.Result{Chain: []string{"www.example.com", "prod.global.fastly.net"}}
	body := "request blocked"

	matcher := NewMatcher()
	first := matcher.Match(headers, body, http.StatusForbidden, trace)
	for i := 0; i < 20; i++ {
		next := matcher.Match(headers, body, http.StatusForbidden, trace)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d differed:\nfirst: %+v\nnext:  %+v", i, first, next)
		}
	}
}

func TestMatchNeverEmitsUnknown(t *testing.T) {
	headers := http.Header{}
	headers.Set("Server", "mystery-appliance")

	detections := NewMatcher().Match(headers, "access denied", http.StatusForbidden, nil)
	for _, d := range detections {
		if d.Service == catalog.Unknown {
			t.Error("matcher emitted Unknown; that fallback belongs to the detector")
		}
	}
}
