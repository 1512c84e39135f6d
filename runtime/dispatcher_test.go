package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/errors"
	"socialchat/mocks"
	"socialchat/runtime/workers"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingSink struct {
	mu       sync.Mutex
	received []domain.Message
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, posted.Message)
	return nil
}

func (s *recordingSink) messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.received...)
}

type blockingSink struct{}

func (blockingSink) Consume(ctx context.Context, _ event.DomainEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

type panickingSink struct{}

func (panickingSink) Consume(_ context.Context, _ event.DomainEvent) error {
	panic("sink exploded")
}

func newMessage(room domain.RoomID, seq uint64, content string) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		Seq:       seq,
		Room:      room,
		Sender:    "alice@example.com",
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDispatcher_Fanout_Attempts_Every_Member_Despite_Failures(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	telemetryChan := make(chan event.Event, 10)
	dispatcher := NewDispatcher(log, registry, nil, telemetryChan, 100*time.Millisecond, 10)

	// Given three members, one of which fails
	failing := mocks.NewMockEventSink(ctrl)
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrSlowConsumer).Times(1)
	first, second := &recordingSink{}, &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "failing", failing)
	_, _ = registry.Join(domain.DefaultRoom, "first", first)
	_, _ = registry.Join(domain.DefaultRoom, "second", second)

	// When a message is fanned out
	message := newMessage(domain.DefaultRoom, 1, "hello")
	attempted := dispatcher.Fanout(context.Background(), domain.DefaultRoom, event.MessagePosted{Message: message})

	// Then all three were attempted and the healthy ones received it
	req.Equal(3, attempted)
	req.Equal([]domain.Message{message}, first.messages())
	req.Equal([]domain.Message{message}, second.messages())

	// And the failure was reported before the completion
	failed := <-telemetryChan
	req.Equal(event.DeliveryFailedType, failed.Type)
	req.Equal("failing", failed.Payload.(event.DeliveryFailed).SessionID)
	req.Equal(message.ID, failed.Payload.(event.DeliveryFailed).MessageID)
	completed := <-telemetryChan
	req.Equal(event.FanoutCompletedType, completed.Type)
	req.Equal(3, completed.Payload.(event.FanoutCompleted).Attempts)
	req.Equal(1, completed.Payload.(event.FanoutCompleted).Failures)
}

func TestDispatcher_Fanout_Slow_Or_Panicking_Sink_Is_Isolated(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	dispatcher := NewDispatcher(log, registry, nil, nil, 50*time.Millisecond, 10)
	healthy := &recordingSink{}

	_, _ = registry.Join(domain.DefaultRoom, "slow", blockingSink{})
	_, _ = registry.Join(domain.DefaultRoom, "panicking", panickingSink{})
	_, _ = registry.Join(domain.DefaultRoom, "healthy", healthy)

	// When fanning out to a room holding a stuck and a broken member
	start := time.Now()
	attempted := dispatcher.Fanout(context.Background(), domain.DefaultRoom, event.MessagePosted{Message: newMessage(domain.DefaultRoom, 1, "hi")})

	// Then the call is bounded by the sink timeout and the healthy member is served
	req.Equal(3, attempted)
	req.Less(time.Since(start), time.Second)
	req.Len(healthy.messages(), 1)
}

func TestDispatcher_Fanout_Empty_Room_Reaches_Permanent_Sinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	index := &recordingSink{}
	dispatcher := NewDispatcher(log, NewRegistry(), nil, nil, 0, 0).Add(index)

	attempted := dispatcher.Fanout(context.Background(), domain.DefaultRoom, event.MessagePosted{Message: newMessage(domain.DefaultRoom, 1, "alone")})

	req.Zero(attempted)
	req.Len(index.messages(), 1)
}

func TestDispatcher_Broadcast_Before_Start_Fails(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dispatcher := NewDispatcher(log, NewRegistry(), nil, nil, 0, 0)

	err := dispatcher.Broadcast(context.Background(), newMessage(domain.DefaultRoom, 1, "too early"))

	req.ErrorIs(err, errors.ErrRoomClosed)
}

func TestDispatcher_Broadcast_Preserves_Order_Per_Room(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	supervisor := workers.NewSupervisor(log, nil, 10*time.Millisecond)
	dispatcher := NewDispatcher(log, registry, supervisor, nil, 100*time.Millisecond, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(done)
	}()
	dispatcher.Start(ctx)

	// Given two members of the default room and one member elsewhere
	a, b, other := &recordingSink{}, &recordingSink{}, &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "a", a)
	_, _ = registry.Join(domain.DefaultRoom, "b", b)
	_, _ = registry.Join(domain.RoomID(2), "other", other)

	// When 100 messages are broadcast in order
	var expected []domain.Message
	for i := 0; i < 100; i++ {
		message := newMessage(domain.DefaultRoom, uint64(i), fmt.Sprintf("message %d", i))
		expected = append(expected, message)
		req.NoError(dispatcher.Broadcast(ctx, message))
	}

	// Then every member of the room receives them in the same order
	req.Eventually(func() bool {
		return len(a.messages()) == 100 && len(b.messages()) == 100
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal(expected, a.messages())
	req.Equal(expected, b.messages())
	req.Empty(other.messages())

	// And room workers stop with the supervisor
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("room worker should stop on cancellation")
	}
	req.ErrorIs(dispatcher.Broadcast(context.Background(), expected[0]), errors.ErrRoomClosed)
}
