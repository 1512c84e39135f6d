// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once the store has assigned their identity.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID // assigned by the store
	Seq       uint64    // insertion order inside the room
	Room      RoomID
	Sender    string
	Content   string
	CreatedAt time.Time
}

// Author returns the name shown to other members.
func (m Message) Author() string {
	if m.Sender == "" {
		return Anonymous
	}
	return m.Sender
}
