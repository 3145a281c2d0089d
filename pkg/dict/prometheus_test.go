package dict

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"
)

func TestPromDictionary_ReadsOnScrape(t *testing.T) {
	h := newTestHandle(t)
	var mu sync.Mutex
	d := NewPromDictionary("model", WithLocker(&mu))
	e := NewExporter(d)

	if err := e.ExportScalar(h, "ctrl.kp", tunable.Float64, "", "Nm", AccessOutput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.SetScalar("ctrl.kp", 4.25); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	families, err := d.Gatherer().Gather()
	if err != nil {
		t.Fatalf("failed to gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected 1 metric family, got %d", len(families))
	}
	mf := families[0]
	if mf.GetName() != "model_ctrl_kp" {
		t.Errorf("expected model_ctrl_kp, got %s", mf.GetName())
	}
	m := mf.GetMetric()[0]
	if got := m.GetGauge().GetValue(); got != 4.25 {
		t.Errorf("expected 4.25, got %v", got)
	}

	labels := map[string]string{}
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["quantity"] != "ctrl.kp" || labels["unit"] != "Nm" || labels["access"] != "output" {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestPromDictionary_Duplicate(t *testing.T) {
	h := newTestHandle(t)
	e := NewExporter(NewPromDictionary("model"))

	if err := e.ExportScalar(h, "gain", tunable.Float64, "", "", AccessInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.ExportScalar(h, "gain", tunable.Float64, "", "", AccessInput); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestPromDictionary_Handler(t *testing.T) {
	h := newTestHandle(t)
	d := NewPromDictionary("model")
	if err := NewExporter(d).ExportScalar(h, "count", tunable.Int16, "", "", AccessInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.SetScalar("count", 12); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "model_count{") {
		t.Errorf("expected model_count in output, got:\n%s", rec.Body.String())
	}
}

func TestPromDictionary_SharedRegistry(t *testing.T) {
	m, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	h := newTestHandle(t)
	d := NewPromDictionary("model", WithRegisterer(m.Registerer()))
	e := NewExporter(d, WithMetrics(m))
	if err := e.ExportScalar(h, "count", tunable.Int16, "", "", AccessInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.SetScalar("count", 3); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "model_count{") {
		t.Errorf("expected model_count on the shared registry, got:\n%s", body)
	}
	if !strings.Contains(body, "tunekit_quantities_exported_total") {
		t.Errorf("expected tunekit metrics next to the quantities, got:\n%s", body)
	}
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		"gain":       "gain",
		"ctrl.kp":    "ctrl_kp",
		"9lives":     "_9lives",
		"a-b c":      "a_b_c",
		"Veh.Speed2": "Veh_Speed2",
	}
	for in, want := range tests {
		if got := MetricName(in); got != want {
			t.Errorf("MetricName(%q): expected %q, got %q", in, want, got)
		}
	}
}
