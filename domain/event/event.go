package event

import (
	"socialchat/domain"
	"time"
)

// DomainEvent is what the dispatcher delivers to sinks.
type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessagePosted is a freshly appended message, delivered live.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) RoomID() domain.RoomID {
	return m.Message.Room
}

// HistoryReplayed is a stored message replayed to a single session after connect.
type HistoryReplayed struct {
	Message domain.Message
}

func (h HistoryReplayed) RoomID() domain.RoomID {
	return h.Message.Room
}

type Type string

// Event is a technical event routed to the telemetry worker.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}
