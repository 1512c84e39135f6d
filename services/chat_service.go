//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/domain/search"
	"socialchat/infrastructure/indexer"
	"socialchat/runtime"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	GetMessages(cmd domain.GetMessageCommand) ([]domain.Message, error)
	SearchMessages(ctx context.Context, cmd domain.SearchMessageCommand) ([]indexer.Hit, error)
	JoinRoom(roomID domain.RoomID, sessionID string, sink contract.EventSink) (domain.Membership, error)
	LeaveRoom(roomID domain.RoomID, sessionID string)
	Report(e event.Event)
}

type ChatService struct {
	orchestrator *runtime.Orchestrator
	index        *indexer.MessageIndex
}

var _ IChatService = (*ChatService)(nil)

func NewChatService(o *runtime.Orchestrator, index *indexer.MessageIndex) *ChatService {
	return &ChatService{orchestrator: o, index: index}
}

func (s *ChatService) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	return s.orchestrator.PostMessage(ctx, cmd)
}

func (s *ChatService) GetMessages(cmd domain.GetMessageCommand) ([]domain.Message, error) {
	return s.orchestrator.GetMessages(cmd)
}

// SearchMessages parses the query flags; an explicit room or limit in the
// command wins over the ones typed in the query.
func (s *ChatService) SearchMessages(ctx context.Context, cmd domain.SearchMessageCommand) ([]indexer.Hit, error) {
	query := search.NewSearchQuery(cmd.Query)
	if cmd.Room != 0 {
		query.Room = cmd.Room
	}
	if cmd.Limit != 0 {
		query.WithLimit(cmd.Limit)
	}
	return s.index.Search(ctx, *query)
}

func (s *ChatService) JoinRoom(roomID domain.RoomID, sessionID string, sink contract.EventSink) (domain.Membership, error) {
	return s.orchestrator.JoinRoom(roomID, sessionID, sink)
}

func (s *ChatService) LeaveRoom(roomID domain.RoomID, sessionID string) {
	s.orchestrator.LeaveRoom(roomID, sessionID)
}

func (s *ChatService) Report(e event.Event) {
	s.orchestrator.Report(e)
}
