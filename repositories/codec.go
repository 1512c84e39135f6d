package repositories

import (
	"fmt"
	"socialchat/domain"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Stored records use the protobuf wire format of:
//
//	message StoredMessage {
//	  string id         = 1;
//	  int64  room       = 2;
//	  string sender     = 3;
//	  string content    = 4;
//	  int64  created_at = 5; // unix nano, UTC
//	  uint64 seq        = 6;
//	}
const (
	fieldID protowire.Number = iota + 1
	fieldRoom
	fieldSender
	fieldContent
	fieldCreatedAt
	fieldSeq
)

// EncodeMessage serializes a message for BadgerDB.
func EncodeMessage(m domain.Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendString(b, m.ID.String())
	b = protowire.AppendTag(b, fieldRoom, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Room))
	b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
	b = protowire.AppendString(b, m.Sender)
	b = protowire.AppendTag(b, fieldContent, protowire.BytesType)
	b = protowire.AppendString(b, m.Content)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixNano()))
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Seq)
	return b
}

// DecodeMessage is the inverse of EncodeMessage. Unknown fields are skipped.
func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Message{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldID || num == fieldSender || num == fieldContent):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.Message{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldID:
				id, err := uuid.Parse(v)
				if err != nil {
					return domain.Message{}, fmt.Errorf("invalid message id: %w", err)
				}
				m.ID = id
			case fieldSender:
				m.Sender = v
			case fieldContent:
				m.Content = v
			}
		case typ == protowire.VarintType && (num == fieldRoom || num == fieldCreatedAt || num == fieldSeq):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.Message{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldRoom:
				m.Room = domain.RoomID(int64(v))
			case fieldCreatedAt:
				m.CreatedAt = time.Unix(0, int64(v)).UTC()
			case fieldSeq:
				m.Seq = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Message{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return m, nil
}
