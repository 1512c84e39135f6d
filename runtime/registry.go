package runtime

import (
	"socialchat/contract"
	"socialchat/domain"
	"socialchat/errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

type entry struct {
	membership domain.Membership
	sink       contract.EventSink
}

// Registry maps rooms to the sessions currently joined to them.
// It holds sinks only as delivery handles and never closes a session.
type Registry struct {
	mu          sync.RWMutex
	roomMembers map[domain.RoomID]map[string]entry // room -> session -> entry
	now         func() time.Time
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		roomMembers: make(map[domain.RoomID]map[string]entry),
		now:         time.Now,
	}
}

// Join registers a session for future broadcasts of the room.
// Joining twice without an intervening Leave fails with ErrAlreadyJoined.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Join(roomID domain.RoomID, sessionID string, sink contract.EventSink) (domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		members = make(map[string]entry)
		r.roomMembers[roomID] = members
	}
	if _, exists := members[sessionID]; exists {
		return domain.Membership{}, errors.ErrAlreadyJoined
	}
	membership := domain.Membership{
		Room:      roomID,
		SessionID: sessionID,
		JoinedAt:  r.now().UTC(),
	}
	members[sessionID] = entry{membership: membership, sink: sink}
	return membership, nil
}

// Leave removes the membership. Leaving a room twice is a no-op so that an
// explicit close and the disconnect cleanup can race safely.
// Empty rooms are removed to prevent memory leaks over time.
func (r *Registry) Leave(roomID domain.RoomID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

// MembersOf returns a copied snapshot of the room, safe to iterate while
// other sessions join or leave.
func (r *Registry) MembersOf(roomID domain.RoomID) []contract.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	snapshot := make([]contract.Member, 0, len(members))
	for sessionID, e := range members {
		snapshot = append(snapshot, contract.Member{SessionID: sessionID, Sink: e.sink})
	}
	return snapshot
}

// Memberships lists the memberships of a room.
func (r *Registry) Memberships(roomID domain.RoomID) []domain.Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.roomMembers[roomID], func(_ string, e entry) domain.Membership {
		return e.membership
	})
}

// Count returns the number of members per room.
func (r *Registry) Count() map[domain.RoomID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapValues(r.roomMembers, func(members map[string]entry, _ domain.RoomID) int {
		return len(members)
	})
}
