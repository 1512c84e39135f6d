package event

import (
	"log/slog"
	"time"
)

// LatencyHandler measures the time between persistence and the end of the fan-out.
type LatencyHandler struct {
	log              *slog.Logger
	counter          *Counter
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, counter *Counter, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, counter: counter, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e Event) {
	payload, ok := e.Payload.(FanoutCompleted)
	if !ok {
		return
	}
	h.counter.Increment(FanoutCompletedType)
	leadTime := e.CreatedAt.Sub(payload.PostedAt)

	h.log.Debug("telemetry: fanout latency",
		"room_id", payload.Room,
		"message_id", payload.MessageID,
		"attempts", payload.Attempts,
		"failures", payload.Failures,
		"lead_time_ms", leadTime.Milliseconds(),
	)

	if h.latencyThreshold > 0 && leadTime > h.latencyThreshold {
		h.log.Warn("high latency detected", "lead_time", leadTime, "room_id", payload.Room)
	}
}
