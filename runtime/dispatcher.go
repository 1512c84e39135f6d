package runtime

import (
	"context"
	"log/slog"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/errors"
	"socialchat/runtime/workers"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

const DefaultSinkTimeout = 500 * time.Millisecond

// Dispatcher delivers posted messages to every member of a room.
// Broadcast only enqueues: each room owns a FIFO queue drained by a
// supervised RoomWorker, which calls Fanout one message at a time.
type Dispatcher struct {
	mu             sync.Mutex
	ctx            context.Context
	log            *slog.Logger
	registry       contract.IRegistry
	supervisor     contract.ISupervisor
	permanentSinks []contract.EventSink
	queues         map[domain.RoomID]chan domain.Message
	telemetryChan  chan<- event.Event
	sinkTimeout    time.Duration
	bufferSize     int
}

var _ contract.IDispatcher = (*Dispatcher)(nil)

func NewDispatcher(
	log *slog.Logger,
	registry contract.IRegistry,
	supervisor contract.ISupervisor,
	telemetryChan chan<- event.Event,
	sinkTimeout time.Duration,
	bufferSize int,
) *Dispatcher {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{
		log:           log,
		registry:      registry,
		supervisor:    supervisor,
		queues:        make(map[domain.RoomID]chan domain.Message),
		telemetryChan: telemetryChan,
		sinkTimeout:   sinkTimeout,
		bufferSize:    bufferSize,
	}
}

// Add registers sinks receiving every event of every room, such as the search index.
func (d *Dispatcher) Add(sinks ...contract.EventSink) *Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permanentSinks = append(d.permanentSinks, sinks...)
	return d
}

// Start binds the dispatcher to the lifetime of ctx. Room workers started
// afterwards stop when ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
}

// Broadcast enqueues the message on its room queue.
// It blocks while the queue is full, until ctx or the dispatcher is done.
func (d *Dispatcher) Broadcast(ctx context.Context, message domain.Message) error {
	queue, done, err := d.queueFor(message.Room)
	if err != nil {
		return err
	}
	select {
	case queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errors.ErrRoomClosed
	}
}

func (d *Dispatcher) queueFor(room domain.RoomID) (chan domain.Message, <-chan struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil || d.ctx.Err() != nil {
		return nil, nil, errors.ErrRoomClosed
	}
	queue, ok := d.queues[room]
	if !ok {
		queue = make(chan domain.Message, d.bufferSize)
		d.queues[room] = queue
		d.supervisor.Start(d.ctx, workers.NewRoomWorker(room, queue, d, d.log))
		d.log.Debug("Room worker started", "room_id", room)
	}
	return queue, d.ctx.Done(), nil
}

// Fanout delivers the event to a snapshot of the room members and to the
// permanent sinks. Deliveries run concurrently, each bounded by the sink
// timeout, and Fanout returns once all of them completed or failed.
// A failing or panicking recipient never prevents delivery to the others.
// It returns the number of members attempted.
func (d *Dispatcher) Fanout(ctx context.Context, roomID domain.RoomID, evt event.DomainEvent) int {
	members := d.registry.MembersOf(roomID)
	d.mu.Lock()
	sinks := append([]contract.EventSink(nil), d.permanentSinks...)
	d.mu.Unlock()

	var failures atomic.Int32
	var wg conc.WaitGroup
	for _, member := range members {
		wg.Go(func() {
			if err := d.deliver(ctx, member.Sink, evt); err != nil {
				failures.Add(1)
				d.log.Debug("Delivery failed", "room_id", roomID, "session_id", member.SessionID, "error", err)
				d.emit(event.New(event.DeliveryFailedType, event.DeliveryFailed{
					Room:      roomID,
					SessionID: member.SessionID,
					MessageID: messageID(evt),
					Err:       err,
				}))
			}
		})
	}
	for _, sink := range sinks {
		wg.Go(func() {
			if err := d.deliver(ctx, sink, evt); err != nil {
				d.log.Error("Permanent sink failed", "sink", sinkName(sink), "error", err)
			}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		failures.Add(1)
		d.log.Error("Sink panicked during fanout", "room_id", roomID, "error", recovered.AsError())
	}

	if posted, ok := evt.(event.MessagePosted); ok {
		d.emit(event.New(event.FanoutCompletedType, event.FanoutCompleted{
			Room:      roomID,
			MessageID: posted.Message.ID,
			Attempts:  len(members),
			Failures:  int(failures.Load()),
			PostedAt:  posted.Message.CreatedAt,
		}))
	}
	return len(members)
}

func (d *Dispatcher) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) error {
	sinkCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
	defer cancel()
	return sink.Consume(sinkCtx, evt)
}

func (d *Dispatcher) emit(e event.Event) {
	select {
	case d.telemetryChan <- e:
	default:
		d.log.Debug("Observability telemetry event lost")
	}
}

func messageID(evt event.DomainEvent) uuid.UUID {
	switch e := evt.(type) {
	case event.MessagePosted:
		return e.Message.ID
	case event.HistoryReplayed:
		return e.Message.ID
	}
	return uuid.Nil
}

func sinkName(sink contract.EventSink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "sink"
}
