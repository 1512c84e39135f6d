package workers

import (
	"context"
	"fmt"
	"log/slog"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
)

// RoomWorker drains the broadcast queue of a single room.
// Messages are fanned out one at a time, so every recipient sees the room in
// the order the queue received it.
type RoomWorker struct {
	room       domain.RoomID
	queue      <-chan domain.Message
	dispatcher contract.IDispatcher
	log        *slog.Logger
}

func NewRoomWorker(room domain.RoomID, queue <-chan domain.Message, dispatcher contract.IDispatcher, log *slog.Logger) RoomWorker {
	return RoomWorker{room: room, queue: queue, dispatcher: dispatcher, log: log}
}

func (w RoomWorker) Name() string {
	return fmt.Sprintf("RoomWorker-%d", w.room)
}

func (w RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker", "room_id", w.room)
			return ctx.Err()
		case message, ok := <-w.queue:
			if !ok {
				return nil
			}
			w.dispatcher.Fanout(ctx, w.room, event.MessagePosted{Message: message})
		}
	}
}
