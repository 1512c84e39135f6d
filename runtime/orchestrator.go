// Package runtime owns the live side of the chat: room membership, message
// ordering and fan-out, and the workers doing it.
// It orchestrates the system without containing transport concerns.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/errors"
	"socialchat/moderation"
	"socialchat/repositories"
	"socialchat/runtime/workers"
	"sync"
	"time"
)

type Orchestrator struct {
	mu                sync.Mutex
	log               *slog.Logger
	supervisor        *workers.Supervisor
	registry          *Registry
	dispatcher        *Dispatcher
	messageRepository repositories.IMessageRepository
	moderator         *moderation.Moderator
	telemetryChan     chan event.Event
	roomLocks         map[domain.RoomID]*sync.Mutex
	cancel            context.CancelFunc
	done              chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor, registry *Registry,
	dispatcher *Dispatcher, messageRepository repositories.IMessageRepository,
	moderator *moderation.Moderator, telemetryChan chan event.Event) *Orchestrator {
	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		dispatcher:        dispatcher,
		messageRepository: messageRepository,
		moderator:         moderator,
		telemetryChan:     telemetryChan,
		roomLocks:         make(map[domain.RoomID]*sync.Mutex),
	}
}

// Start runs the supervisor in the background and opens the dispatcher.
// It returns immediately; Stop waits for every worker to finish.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.log.Warn("Orchestrator already started")
		return
	}
	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})
	o.dispatcher.Start(ctx)

	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(o.done)
		o.supervisor.Run(ctx)
	}()
}

// PostMessage runs the send path of a session: authorization, moderation,
// durable append and broadcast. Append and enqueue happen under the room
// lock, so the broadcast order of a room is its storage order.
func (o *Orchestrator) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if !cmd.Identity.Authenticated {
		return domain.Message{}, errors.ErrUnauthenticated
	}

	content, words := o.moderator.Censor(cmd.Content)
	for _, word := range words {
		o.Report(event.New(event.CensorshipHitType, event.Censored{Room: cmd.Room, Word: word}))
	}

	lock := o.roomLock(cmd.Room)
	lock.Lock()
	defer lock.Unlock()

	message, err := o.messageRepository.Append(cmd.Room, cmd.Identity.Email, content)
	if err != nil {
		return domain.Message{}, err
	}
	if err := o.dispatcher.Broadcast(ctx, message); err != nil {
		// Persisted but not delivered live; it still shows up in history.
		o.log.Warn("Message stored but not broadcast", "room_id", cmd.Room, "message_id", message.ID, "error", err)
		return message, fmt.Errorf("broadcast message %s: %w", message.ID, err)
	}
	return message, nil
}

func (o *Orchestrator) GetMessages(cmd domain.GetMessageCommand) ([]domain.Message, error) {
	return o.messageRepository.Recent(cmd.Room, cmd.Limit)
}

func (o *Orchestrator) JoinRoom(roomID domain.RoomID, sessionID string, sink contract.EventSink) (domain.Membership, error) {
	return o.registry.Join(roomID, sessionID, sink)
}

// LeaveRoom is idempotent.
func (o *Orchestrator) LeaveRoom(roomID domain.RoomID, sessionID string) {
	o.registry.Leave(roomID, sessionID)
}

// Report forwards a technical event to the telemetry worker without blocking.
func (o *Orchestrator) Report(e event.Event) {
	select {
	case o.telemetryChan <- e:
	default:
		o.log.Debug("Observability telemetry event lost", "type", e.Type)
	}
}

// Rooms returns the number of members per room.
func (o *Orchestrator) Rooms() map[domain.RoomID]int {
	return o.registry.Count()
}

func (o *Orchestrator) roomLock(roomID domain.RoomID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		o.roomLocks[roomID] = lock
	}
	return lock
}

// Stop initiates a graceful shutdown of the orchestrator.
// It cancels the supervision context to signal workers to stop and waits
// for them, at most until timeout.
func (o *Orchestrator) Stop(timeout time.Duration) {
	o.log.Info("Requesting orchestrator shutdown")

	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	o.supervisor.Stop()
	select {
	case <-done:
		o.log.Debug("Orchestrator workers stopped")
	case <-time.After(timeout):
		o.log.Warn("Orchestrator workers did not stop in time", "timeout", timeout)
	}
}
