package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the per-thread
// orchestrator pipeline.
type ConversationMetrics struct {
	ingestTotal     *prometheus.CounterVec
	decisionLatency *prometheus.HistogramVec
	escalationTotal *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guestline",
			Subsystem: "conversation",
			Name:      "ingest_total",
			Help:      "Inbound events by channel and outcome",
		}, []string{"channel", "outcome"}),
		decisionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "guestline",
			Subsystem: "conversation",
			Name:      "decision_latency_seconds",
			Help:      "Latency of decision engine calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		escalationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guestline",
			Subsystem: "conversation",
			Name:      "escalation_total",
			Help:      "Escalations by trigger",
		}, []string{"trigger"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ingestTotal, m.decisionLatency, m.escalationTotal)
	return m
}

func (m *ConversationMetrics) ObserveIngest(channel, outcome string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *ConversationMetrics) ObserveDecisionLatency(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.decisionLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *ConversationMetrics) ObserveEscalation(trigger string) {
	if m == nil {
		return
	}
	m.escalationTotal.WithLabelValues(trigger).Inc()
}

// SchedulerMetrics exposes counters for the reminder scheduler.
type SchedulerMetrics struct {
	jobsScheduled *prometheus.CounterVec
	jobsProcessed *prometheus.CounterVec
	timerRearms   prometheus.Counter
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobsScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guestline",
			Subsystem: "scheduler",
			Name:      "jobs_scheduled_total",
			Help:      "Reminder jobs created by rule and channel",
		}, []string{"rule", "channel"}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guestline",
			Subsystem: "scheduler",
			Name:      "jobs_processed_total",
			Help:      "Due jobs processed by resulting status",
		}, []string{"status"}),
		timerRearms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guestline",
			Subsystem: "scheduler",
			Name:      "timer_rearm_total",
			Help:      "Wake timer re-arms across all property actors",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsScheduled, m.jobsProcessed, m.timerRearms)
	return m
}

func (m *SchedulerMetrics) ObserveScheduled(rule, channel string) {
	if m == nil {
		return
	}
	m.jobsScheduled.WithLabelValues(rule, channel).Inc()
}

func (m *SchedulerMetrics) ObserveProcessed(status string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(status).Inc()
}

func (m *SchedulerMetrics) ObserveTimerRearm() {
	if m == nil {
		return
	}
	m.timerRearms.Inc()
}
