package domain

import (
	"time"
)

type Command interface {
	RoomID() RoomID
}

// PostMessageCommand is one inbound chat frame, already decoded.
type PostMessageCommand struct {
	Room       RoomID
	SessionID  string
	Identity   Identity
	Content    string
	ReceivedAt time.Time
}

func (p PostMessageCommand) RoomID() RoomID {
	return p.Room
}

// GetMessageCommand asks for the most recent messages of a room.
// A zero Limit means the configured history size.
type GetMessageCommand struct {
	Room  RoomID
	Limit int
}

func (g GetMessageCommand) RoomID() RoomID {
	return g.Room
}

// SearchMessageCommand is a full-text lookup in the message index.
type SearchMessageCommand struct {
	Room  RoomID
	Query string
	Limit int
}

func (s SearchMessageCommand) RoomID() RoomID {
	return s.Room
}
