package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/errors"
	"socialchat/mocks"
	"socialchat/moderation"
	"socialchat/repositories"
	"socialchat/runtime/workers"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var alice = domain.Identity{Authenticated: true, Email: "alice@example.com"}

func newOrchestrator(t *testing.T, repository repositories.IMessageRepository, moderator *moderation.Moderator) (*Orchestrator, *Registry, chan event.Event) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetryChan := make(chan event.Event, 100)
	registry := NewRegistry()
	supervisor := workers.NewSupervisor(log, telemetryChan, 10*time.Millisecond)
	dispatcher := NewDispatcher(log, registry, supervisor, telemetryChan, 100*time.Millisecond, 16)
	orchestrator := NewOrchestrator(log, supervisor, registry, dispatcher, repository, moderator, telemetryChan)
	orchestrator.Start(context.Background())
	t.Cleanup(func() { orchestrator.Stop(time.Second) })
	return orchestrator, registry, telemetryChan
}

func newBadgerRepository(t *testing.T) *repositories.MessageRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	repository, err := repositories.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug), 50, 4096)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repository.Close()
		_ = db.Close()
	})
	return repository
}

func TestOrchestrator_PostMessage_Requires_Authentication(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	orchestrator, registry, _ := newOrchestrator(t, repository, nil)
	sink := &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "listener", sink)

	// When an anonymous participant posts (no Append expected on the mock)
	_, err := orchestrator.PostMessage(context.Background(), domain.PostMessageCommand{
		Room:     domain.DefaultRoom,
		Identity: domain.AnonymousIdentity(),
		Content:  "hello",
	})

	// Then the message is neither stored nor broadcast
	req.ErrorIs(err, errors.ErrUnauthenticated)
	time.Sleep(50 * time.Millisecond)
	req.Empty(sink.messages())
}

func TestOrchestrator_PostMessage_Validation_Error_Is_Not_Broadcast(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	repository.EXPECT().
		Append(domain.DefaultRoom, alice.Email, "   ").
		Return(domain.Message{}, errors.ErrEmptyContent).
		Times(1)
	orchestrator, registry, _ := newOrchestrator(t, repository, nil)
	sink := &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "listener", sink)

	_, err := orchestrator.PostMessage(context.Background(), domain.PostMessageCommand{
		Room:     domain.DefaultRoom,
		Identity: alice,
		Content:  "   ",
	})

	req.ErrorIs(err, errors.ErrValidation)
	time.Sleep(50 * time.Millisecond)
	req.Empty(sink.messages())
}

func TestOrchestrator_PostMessage_Censors_Stores_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	req.NoError(err)
	repository := newBadgerRepository(t)
	orchestrator, registry, telemetryChan := newOrchestrator(t, repository, moderator)
	sink := &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "listener", sink)

	// When an authenticated participant posts a censored word
	message, err := orchestrator.PostMessage(context.Background(), domain.PostMessageCommand{
		Room:     domain.DefaultRoom,
		Identity: alice,
		Content:  "  the badger is here ",
	})

	// Then the stored and broadcast content is masked and trimmed
	req.NoError(err)
	req.Equal("the ****** is here", message.Content)
	req.Equal(alice.Email, message.Sender)
	req.Eventually(func() bool { return len(sink.messages()) == 1 }, time.Second, 10*time.Millisecond)
	req.Equal(message, sink.messages()[0])

	history, err := orchestrator.GetMessages(domain.GetMessageCommand{Room: domain.DefaultRoom})
	req.NoError(err)
	req.Equal([]domain.Message{message}, history)

	// And the censorship hit was reported
	hit := <-telemetryChan
	req.Equal(event.CensorshipHitType, hit.Type)
	req.Equal(event.Censored{Room: domain.DefaultRoom, Word: "badger"}, hit.Payload)
}

func TestOrchestrator_Concurrent_Posts_Are_Delivered_In_Storage_Order(t *testing.T) {
	req := require.New(t)
	repository := newBadgerRepository(t)
	orchestrator, registry, _ := newOrchestrator(t, repository, nil)
	a, b := &recordingSink{}, &recordingSink{}
	_, _ = registry.Join(domain.DefaultRoom, "a", a)
	_, _ = registry.Join(domain.DefaultRoom, "b", b)

	// Given 4 senders posting 25 messages each, concurrently
	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			sender := domain.Identity{Authenticated: true, Email: fmt.Sprintf("sender%d@example.com", s)}
			for i := 0; i < 25; i++ {
				_, err := orchestrator.PostMessage(context.Background(), domain.PostMessageCommand{
					Room:     domain.DefaultRoom,
					Identity: sender,
					Content:  fmt.Sprintf("%d-%d", s, i),
				})
				if err != nil {
					t.Errorf("post: %v", err)
				}
			}
		}(s)
	}
	wg.Wait()

	// Then both members observe the same order, which is the storage order
	req.Eventually(func() bool {
		return len(a.messages()) == 100 && len(b.messages()) == 100
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal(a.messages(), b.messages())

	stored, err := orchestrator.GetMessages(domain.GetMessageCommand{Room: domain.DefaultRoom, Limit: 100})
	req.NoError(err)
	req.Equal(stored, a.messages())
	for i := 1; i < len(stored); i++ {
		req.Less(stored[i-1].Seq, stored[i].Seq)
		req.True(stored[i-1].CreatedAt.Before(stored[i].CreatedAt))
	}
}

func TestOrchestrator_Join_Leave(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	orchestrator, _, _ := newOrchestrator(t, mocks.NewMockIMessageRepository(ctrl), nil)

	_, err := orchestrator.JoinRoom(domain.DefaultRoom, "s1", &recordingSink{})
	req.NoError(err)
	req.Equal(map[domain.RoomID]int{domain.DefaultRoom: 1}, orchestrator.Rooms())

	orchestrator.LeaveRoom(domain.DefaultRoom, "s1")
	orchestrator.LeaveRoom(domain.DefaultRoom, "s1")
	req.Empty(orchestrator.Rooms())
}
