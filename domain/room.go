package domain

import (
	"strconv"
	"time"
)

type RoomID int

// DefaultRoom is the single room served over the wire.
const DefaultRoom RoomID = 1

func (r RoomID) String() string {
	return strconv.Itoa(int(r))
}

// Membership is the presence of one session in a room.
// The registry owns it; the session owns its transport.
type Membership struct {
	Room      RoomID
	SessionID string
	JoinedAt  time.Time
}
