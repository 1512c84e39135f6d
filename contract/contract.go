//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"socialchat/domain"
	"socialchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is a delivery handle: a connected session or a permanent consumer.
// Consume must not block longer than ctx allows.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Member is one entry of a room snapshot.
type Member struct {
	SessionID string
	Sink      EventSink
}

type IRegistry interface {
	Join(roomID domain.RoomID, sessionID string, sink EventSink) (domain.Membership, error)
	Leave(roomID domain.RoomID, sessionID string)
	MembersOf(roomID domain.RoomID) []Member
}

type IDispatcher interface {
	Broadcast(ctx context.Context, message domain.Message) error
	Fanout(ctx context.Context, roomID domain.RoomID, evt event.DomainEvent) int
}
