package event

import (
	"socialchat/domain"
	"time"

	"github.com/google/uuid"
)

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	DeliveryFailedType      Type = "DELIVERY_FAILED"
	FanoutCompletedType     Type = "FANOUT_COMPLETED"
	SessionOpenedType       Type = "SESSION_OPENED"
	SessionClosedType       Type = "SESSION_CLOSED"
	MessageRejectedType     Type = "MESSAGE_REJECTED"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
)

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type DeliveryFailed struct {
	Room      domain.RoomID
	SessionID string
	MessageID uuid.UUID
	Err       error
}

type FanoutCompleted struct {
	Room      domain.RoomID
	MessageID uuid.UUID
	Attempts  int
	Failures  int
	PostedAt  time.Time
}

type SessionOpened struct {
	Room      domain.RoomID
	SessionID string
	User      string
}

type SessionClosed struct {
	Room      domain.RoomID
	SessionID string
	User      string
	Duration  time.Duration
}

type MessageRejected struct {
	SessionID string
	Reason    string
}

type Censored struct {
	Room domain.RoomID
	Word string
}
