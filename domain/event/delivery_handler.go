package event

import (
	"log/slog"
	"socialchat/errors"
)

// DeliveryFailedHandler counts per-recipient delivery failures reported by the dispatcher.
// A failure never reaches the sender, this is the only place it becomes visible.
type DeliveryFailedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewDeliveryFailedHandler(log *slog.Logger, counter *Counter) *DeliveryFailedHandler {
	return &DeliveryFailedHandler{log: log, counter: counter}
}

func (h *DeliveryFailedHandler) Handle(event Event) {
	switch event.Type {
	case DeliveryFailedType:
		payload, ok := event.Payload.(DeliveryFailed)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(DeliveryFailedType)
		h.log.Debug("delivery failed",
			"room_id", payload.Room,
			"session_id", payload.SessionID,
			"message_id", payload.MessageID,
			"error", payload.Err)
	}
}

// SessionHandler tracks connection lifecycle and rejected frames.
type SessionHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewSessionHandler(log *slog.Logger, counter *Counter) *SessionHandler {
	return &SessionHandler{log: log, counter: counter}
}

func (h *SessionHandler) Handle(event Event) {
	switch payload := event.Payload.(type) {
	case SessionOpened:
		h.counter.Increment(SessionOpenedType)
	case SessionClosed:
		h.counter.Increment(SessionClosedType)
		h.log.Debug("session lifetime",
			"session_id", payload.SessionID,
			"user", payload.User,
			"duration", payload.Duration)
	case MessageRejected:
		h.counter.Increment(MessageRejectedType)
	}
}

// CensoredHandler keeps a hit count per censored word.
type CensoredHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewCensoredHandler(log *slog.Logger, counter *Counter) *CensoredHandler {
	return &CensoredHandler{log: log, counter: counter}
}

func (h *CensoredHandler) Handle(event Event) {
	switch event.Type {
	case CensorshipHitType:
		payload, ok := event.Payload.(Censored)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(CensorshipHitType)
		h.log.Debug("censored word hit", "room_id", payload.Room, "word", payload.Word)
	}
}
