// Package indexer keeps a full-text index of posted messages in Bluge.
// It is registered as a permanent sink, so it sees every message of every room.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/domain/search"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
)

const (
	fieldID        = "_id"
	fieldContent   = "content"
	fieldAuthor    = "author"
	fieldRoom      = "room"
	fieldCreatedAt = "created_at"
)

// Hit is one search result.
type Hit struct {
	ID        string    `json:"id"`
	Room      int       `json:"room"`
	Author    string    `json:"user_email"`
	Content   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

const DefaultQueueSize = 1024

// MessageIndex is fed by the dispatcher and written by its own worker, so a
// slow segment flush never holds up a room fan-out.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
	queue  chan domain.Message
}

var (
	_ contract.EventSink = (*MessageIndex)(nil)
	_ contract.Worker    = (*MessageIndex)(nil)
)

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger, queueSize int) *MessageIndex {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &MessageIndex{writer: writer, log: log, queue: make(chan domain.Message, queueSize)}
}

func (i *MessageIndex) Name() string {
	return "MessageIndex"
}

// Consume queues posted messages for indexing and ignores every other event.
// It waits for room in the queue no longer than ctx allows.
func (i *MessageIndex) Consume(ctx context.Context, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	select {
	case i.queue <- posted.Message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run indexes queued messages until ctx is canceled, then flushes what is
// left in the queue.
func (i *MessageIndex) Run(ctx context.Context) error {
	for {
		select {
		case m := <-i.queue:
			i.index(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-i.queue:
					i.index(m)
				default:
					return ctx.Err()
				}
			}
		}
	}
}

func (i *MessageIndex) index(m domain.Message) {
	if err := i.Index(m); err != nil {
		i.log.Error("Message not indexed", "message_id", m.ID, "error", err)
	}
}

func (i *MessageIndex) Index(m domain.Message) error {
	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField(fieldContent, m.Content).StoreValue()).
		AddField(bluge.NewKeywordField(fieldAuthor, m.Author()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldRoom, m.Room.String()).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, m.CreatedAt).StoreValue())
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", m.ID, err)
	}
	return nil
}

// Search returns the best matching messages, highest score first.
func (i *MessageIndex) Search(ctx context.Context, q search.Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Unable to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery()
	if q.Terms != "" {
		query.AddMust(bluge.NewMatchQuery(q.Terms).SetField(fieldContent))
	} else {
		query.AddMust(bluge.NewMatchAllQuery())
	}
	if q.Author != "" {
		query.AddMust(bluge.NewTermQuery(q.Author).SetField(fieldAuthor))
	}
	if q.Room != 0 {
		query.AddMust(bluge.NewTermQuery(q.Room.String()).SetField(fieldRoom))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := Hit{Score: match.Score}
		var visitErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.ID = string(value)
			case fieldContent:
				hit.Content = string(value)
			case fieldAuthor:
				hit.Author = string(value)
			case fieldRoom:
				hit.Room, visitErr = strconv.Atoi(string(value))
			case fieldCreatedAt:
				hit.CreatedAt, visitErr = bluge.DecodeDateTime(value)
			}
			return visitErr == nil
		})
		if err == nil {
			err = visitErr
		}
		if err != nil {
			break
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
