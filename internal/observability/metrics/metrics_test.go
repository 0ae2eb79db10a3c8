package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConversationMetricsObserve(t *testing.T) {
	m := NewConversationMetrics(prometheus.NewRegistry())
	m.ObserveIngest("sms", "auto_reply")
	m.ObserveDecisionLatency("bedrock", "ok", 0.5)
	m.ObserveEscalation("low_confidence")
}

func TestSchedulerMetricsObserve(t *testing.T) {
	m := NewSchedulerMetrics(prometheus.NewRegistry())
	m.ObserveScheduled("T_MINUS_3", "sms")
	m.ObserveProcessed("sent")
	m.ObserveTimerRearm()
}

func TestMetricsNilSafe(t *testing.T) {
	var c *ConversationMetrics
	c.ObserveIngest("sms", "duplicate")
	c.ObserveDecisionLatency("gemini", "error", 0.1)
	c.ObserveEscalation("needs_human")

	var s *SchedulerMetrics
	s.ObserveScheduled("DAY_OF", "email")
	s.ObserveProcessed("failed")
	s.ObserveTimerRearm()
}
