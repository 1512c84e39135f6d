//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"socialchat/domain"
	"socialchat/errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultLimitMessages    = 50
	DefaultMaxContentLength = 4096
	MessagePrefix           = "msg:"

	sequenceKey       = "seq:msg"
	sequenceBandwidth = 128
)

var validate = validator.New()

type IMessageRepository interface {
	Append(room domain.RoomID, sender, content string) (domain.Message, error)
	Recent(room domain.RoomID, limit int) ([]domain.Message, error)
}

// MessageRepository is the durable append-only log of chat messages.
type MessageRepository struct {
	mu               sync.Mutex
	db               *badger.DB
	log              *slog.Logger
	seq              *badger.Sequence
	limitMessages    int
	maxContentLength int
	lastAt           time.Time
	now              func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages, maxContentLength int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	if limitMessages <= 0 {
		limitMessages = DefaultLimitMessages
	}
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return &MessageRepository{
		db:               db,
		log:              log,
		seq:              seq,
		limitMessages:    limitMessages,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}, nil
}

// Append validates and persists a message.
// The key is formatted as "msg:{room_id}:{seq_padded}" so that a prefix scan
// returns messages in server receipt order. The lock covers both the sequence
// lease and the write, so key order and timestamp order agree.
func (m *MessageRepository) Append(room domain.RoomID, sender, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if err := m.validateContent(content); err != nil {
		return domain.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seq, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("next sequence: %w", err)
	}

	at := m.now().UTC()
	if !at.After(m.lastAt) {
		at = m.lastAt.Add(time.Nanosecond)
	}

	message := domain.Message{
		ID:        uuid.New(),
		Seq:       seq,
		Room:      room,
		Sender:    sender,
		Content:   content,
		CreatedAt: at,
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(room, seq), EncodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	m.lastAt = at
	return message, nil
}

// Recent returns up to limit most recent messages of the room, oldest first.
// A non-positive limit falls back to the configured history size.
func (m *MessageRepository) Recent(room domain.RoomID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = m.limitMessages
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration: start after the greatest possible sequence of the room
		seekKey := append(append([]byte{}, prefix...), []byte(strings.Repeat("9", 20))...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := DecodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

// Close releases the leased sequence range.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func (m *MessageRepository) validateContent(content string) error {
	if err := validate.Var(content, "required"); err != nil {
		return errors.ErrEmptyContent
	}
	if err := validate.Var(content, "max="+strconv.Itoa(m.maxContentLength)); err != nil {
		return fmt.Errorf("%w (max %d characters)", errors.ErrContentTooLong, m.maxContentLength)
	}
	return nil
}

func roomPrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%d:", MessagePrefix, room))
}

func messageKey(room domain.RoomID, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%d:%020d", MessagePrefix, room, seq))
}
