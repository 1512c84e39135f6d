package event

import (
	"log/slog"
	"socialchat/errors"
)

// WorkerRestartedAfterPanicHandler counts supervisor restarts. A room worker
// that keeps panicking shows up here before anywhere else.
type WorkerRestartedAfterPanicHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerRestartedAfterPanicHandler(log *slog.Logger, counter *Counter) *WorkerRestartedAfterPanicHandler {
	return &WorkerRestartedAfterPanicHandler{log: log, counter: counter}
}

func (h *WorkerRestartedAfterPanicHandler) Handle(event Event) {
	if event.Type != RestartedAfterPanicType {
		return
	}
	payload, ok := event.Payload.(WorkerRestartedAfterPanic)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.counter.Increment(RestartedAfterPanicType)
	h.log.Warn("worker restarted after panic",
		"worker", payload.WorkerName,
		"restarts", h.counter.Get(RestartedAfterPanicType))
}
