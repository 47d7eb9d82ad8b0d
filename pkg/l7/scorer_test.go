package l7

import (
	"math"
	"testing"

	"github.com/edgeprobe/edgeprobe/pkg/catalog"
)

func ind(weight float64) Indicator {
	return Indicator{Source: SourceHeader, Description: "test", Weight: weight}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		want    float64
	}{
		{"none", nil, 0},
		{"single", []float64{0.6}, 0.6},
		{"two independent", []float64{0.6, 0.7}, 0.88},
		{"three independent", []float64{0.6, 0.4, 0.7}, 0.928},
		{"certain indicator dominates", []float64{1.0, 0.4}, 1.0},
		{"overweight clamped", []float64{1.5}, 1.0},
		{"zero weight ignored", []float64{0, 0.6}, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indicators := make([]Indicator, len(tt.weights))
			for i, w := range tt.weights {
				indicators[i] = ind(w)
			}
			got := Combine(indicators)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Combine(%v) = %v, want %v", tt.weights, got, tt.want)
			}
		})
	}
}

func TestCombineMonotonic(t *testing.T) {
	indicators := []Indicator{ind(0.4)}
	prev := Combine(indicators)
	for i := 0; i < 8; i++ {
		indicators = append(indicators, ind(0.4))
		next := Combine(indicators)
		if next < prev {
			t.Fatalf("adding evidence lowered confidence: %v -> %v", prev, next)
		}
		if next > 1 {
			t.Fatalf("confidence %v escaped [0,1]", next)
		}
		prev = next
	}
}

func TestRankDetectionsTieBreak(t *testing.T) {
	// Fastly and KeyCDN with identical confidence and indicator count:
	// catalog declaration order decides, and Fastly is declared first.
	detections := []Detection{
		{Service: catalog.KeyCDN, Confidence: 0.6, Indicators: []Indicator{ind(0.6)}},
		{Service: catalog.Fastly, Confidence: 0.6, Indicators: []Indicator{ind(0.6)}},
	}
	rankDetections(detections)
	if detections[0].Service != catalog.Fastly {
		t.Errorf("tie-break ranked %q first, want %q", detections[0].Service, catalog.Fastly)
	}
}

func TestRankDetectionsIndicatorCountBeforeDeclaration(t *testing.T) {
	detections := []Detection{
		{Service: catalog.Cloudflare, Confidence: 0.6, Indicators: []Indicator{ind(0.6)}},
		{Service: catalog.Radware, Confidence: 0.6, Indicators: []Indicator{ind(0.3), ind(0.3)}},
	}
	rankDetections(detections)
	if detections[0].Service != catalog.Radware {
		t.Errorf("more indicators at equal confidence should rank first, got %q", detections[0].Service)
	}
}

func TestRankDetectionsConfidenceFirst(t *testing.T) {
	detections := []Detection{
		{Service: catalog.Cloudflare, Confidence: 0.4, Indicators: []Indicator{ind(0.4), ind(0.4)}},
		{Service: catalog.Radware, Confidence: 0.7, Indicators: []Indicator{ind(0.7)}},
	}
	rankDetections(detections)
	if detections[0].Service != catalog.Radware {
		t.Errorf("higher confidence should always rank first, got %q", detections[0].Service)
	}
}
