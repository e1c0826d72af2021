package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestChatMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveMessage("booking")
	m.ObserveMessage("booking")
	m.ObserveMessage("general")
	m.ObserveBookingCompleted()
	m.ObserveValidationFailure("phone")
	m.ObserveLLMLatency(0.42)

	if got := gatherCounter(t, reg, "medbook_chat_messages_total", map[string]string{"intent": "booking"}); got != 2 {
		t.Errorf("booking messages = %v, want 2", got)
	}
	if got := gatherCounter(t, reg, "medbook_chat_messages_total", map[string]string{"intent": "general"}); got != 1 {
		t.Errorf("general messages = %v, want 1", got)
	}
	if got := gatherCounter(t, reg, "medbook_booking_completed_total", nil); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
	if got := gatherCounter(t, reg, "medbook_booking_validation_failures_total", map[string]string{"field": "phone"}); got != 1 {
		t.Errorf("validation failures = %v, want 1", got)
	}
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveMessage("booking")
	m.ObserveLLMLatency(1)
	m.ObserveBookingStarted()
	m.ObserveBookingCompleted()
	m.ObserveBookingCancelled()
	m.ObserveValidationFailure("date")
}
