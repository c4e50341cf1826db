package metrics

import "github.com/prometheus/client_golang/prometheus"

// ContentMetrics exposes counters for the content resolution layer.
type ContentMetrics struct {
	fetchTotal    *prometheus.CounterVec
	fallbackTotal *prometheus.CounterVec
	cacheTotal    *prometheus.CounterVec
}

func NewContentMetrics(reg prometheus.Registerer) *ContentMetrics {
	m := &ContentMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "content",
			Name:      "fetch_total",
			Help:      "Total content fetches by category and outcome",
		}, []string{"category", "outcome"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "content",
			Name:      "fallback_total",
			Help:      "Content requests served from the bundled fallback snapshot",
		}, []string{"category"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "content",
			Name:      "cache_total",
			Help:      "Content cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fallbackTotal, m.cacheTotal)
	return m
}

func (m *ContentMetrics) ObserveFetch(category, outcome string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(category, outcome).Inc()
}

func (m *ContentMetrics) ObserveFallback(category string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(category).Inc()
}

func (m *ContentMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

// BookingMetrics exposes counters/histograms for booking and payment flows.
type BookingMetrics struct {
	bookingsTotal *prometheus.CounterVec
	paymentsTotal *prometheus.CounterVec
	slotLatency   prometheus.Histogram
	notifyTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Booking operations by action and outcome",
		}, []string{"action", "outcome"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "payments",
			Name:      "total",
			Help:      "Payment intent operations by action and outcome",
		}, []string{"action", "outcome"}),
		slotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mandir",
			Subsystem: "bookings",
			Name:      "slot_query_seconds",
			Help:      "Latency of slot availability queries",
			Buckets:   prometheus.DefBuckets,
		}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mandir",
			Subsystem: "notify",
			Name:      "total",
			Help:      "Notification sends by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.paymentsTotal, m.slotLatency, m.notifyTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(action, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *BookingMetrics) ObservePayment(action, outcome string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotLatency(seconds float64) {
	if m == nil {
		return
	}
	m.slotLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveNotify(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(channel, outcome).Inc()
}
