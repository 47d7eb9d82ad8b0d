package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.ObserveProbe("open")
	m.ObserveRequest("ok", 0.1)
	m.ObserveDetection("Cloudflare")
}

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.ObserveProbe("open")
	m.ObserveProbe("open")
	m.ObserveProbe("closed")
	m.ObserveRequest("ok", 0.25)
	m.ObserveRequest("error", 0)
	m.ObserveDetection("Cloudflare")

	if got := testutil.ToFloat64(m.probesTotal.WithLabelValues("open")); got != 2 {
		t.Errorf("open probes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.probesTotal.WithLabelValues("closed")); got != 1 {
		t.Errorf("closed probes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("error")); got != 1 {
		t.Errorf("error requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.detectionsTotal.WithLabelValues("Cloudflare")); got != 1 {
		t.Errorf("detections = %v, want 1", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveProbe("open")

	if got := testutil.ToFloat64(b.probesTotal.WithLabelValues("open")); got != 0 {
		t.Errorf("registries leaked: %v", got)
	}
	if a.Registry() == b.Registry() {
		t.Error("instances must not share a registry")
	}
}

func TestHandlerServes(t *testing.T) {
	m := New()
	m.ObserveProbe("open")
	if m.Handler() == nil {
		t.Fatal("nil handler")
	}
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "edgeprobe_port_probes_total" {
			found = true
		}
	}
	if !found {
		t.Error("probe counter missing from gathered families")
	}
}
