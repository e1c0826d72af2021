package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the assistant's chat flows.
type ChatMetrics struct {
	messagesTotal      *prometheus.CounterVec
	llmLatency         prometheus.Histogram
	bookingsStarted    prometheus.Counter
	bookingsCompleted  prometheus.Counter
	bookingsCancelled  prometheus.Counter
	validationFailures *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total inbound chat messages by routed intent",
		}, []string{"intent"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medbook",
			Subsystem: "chat",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   prometheus.DefBuckets,
		}),
		bookingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "sessions_started_total",
			Help:      "Total booking wizard sessions started",
		}),
		bookingsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "completed_total",
			Help:      "Total bookings completed through the wizard",
		}),
		bookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "cancelled_total",
			Help:      "Total booking wizard sessions cancelled",
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "validation_failures_total",
			Help:      "Total wizard validation failures by field",
		}, []string{"field"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.messagesTotal,
		m.llmLatency,
		m.bookingsStarted,
		m.bookingsCompleted,
		m.bookingsCancelled,
		m.validationFailures,
	)
	return m
}

func (m *ChatMetrics) ObserveMessage(intent string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent).Inc()
}

func (m *ChatMetrics) ObserveLLMLatency(seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.Observe(seconds)
}

func (m *ChatMetrics) ObserveBookingStarted() {
	if m == nil {
		return
	}
	m.bookingsStarted.Inc()
}

func (m *ChatMetrics) ObserveBookingCompleted() {
	if m == nil {
		return
	}
	m.bookingsCompleted.Inc()
}

func (m *ChatMetrics) ObserveBookingCancelled() {
	if m == nil {
		return
	}
	m.bookingsCancelled.Inc()
}

func (m *ChatMetrics) ObserveValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}
