package workers

import (
	"context"
	"log/slog"
	"socialchat/domain/event"
	"time"
)

// TelemetryWorker hands every technical event to the registered handlers
// and periodically logs the counters they maintain.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	telemetryChan  <-chan event.Event
	handlers       []event.Handler
	counter        *event.Counter
}

func NewTelemetryWorker(log *slog.Logger,
	metricInterval time.Duration,
	telemetryChan <-chan event.Event,
	counter *event.Counter,
	handlers []event.Handler) *TelemetryWorker {
	if metricInterval <= 0 {
		metricInterval = time.Minute
	}
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		telemetryChan:  telemetryChan,
		handlers:       handlers,
		counter:        counter,
	}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-w.telemetryChan:
			w.handle(evt)
		case <-ticker.C:
			w.report()
		}
	}
}

func (w TelemetryWorker) handle(event event.Event) {
	for _, h := range w.handlers {
		h.Handle(event)
	}
}

func (w TelemetryWorker) report() {
	if w.counter == nil {
		return
	}
	snapshot := w.counter.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	attrs := make([]any, 0, len(snapshot)*2)
	for t, n := range snapshot {
		attrs = append(attrs, string(t), n)
	}
	w.log.Info("Telemetry counters", attrs...)
}
