package models

import (
	"errors"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/beamdrop/services/backend/internal/metrics"
)

// ErrInvalidRoomID is returned when a room id fails shape validation.
var ErrInvalidRoomID = errors.New("invalid room id")

// roomIDPattern is the only accepted room id shape. Ids are generated by the
// client collaborator; the server only validates them.
var roomIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8,15}$`)

// ValidRoomID reports whether id matches the accepted room id shape.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// Room is an ephemeral rendezvous namespace scoping message relay to its
// current members. Protection is decided once at creation and never
// re-evaluated. Membership is not capped at two; the offer/answer flow is
// what assumes exactly two parties.
type Room struct {
	ID           string
	Clients      map[string]*Client
	Protected    bool
	PasswordHash string
	CreatedAt    time.Time
	Mu           sync.RWMutex
}

// NewRoom creates a room. The password hash is stored only when the room is
// protected.
func NewRoom(id string, protected bool, passwordHash string) *Room {
	if !protected {
		passwordHash = ""
	}
	return &Room{
		ID:           id,
		Clients:      make(map[string]*Client),
		Protected:    protected,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// HasUsers reports whether any connection is currently joined.
func (r *Room) HasUsers() bool {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return len(r.Clients) > 0
}

// MemberCount returns the current number of joined connections.
func (r *Room) MemberCount() int {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return len(r.Clients)
}

// Broadcast queues a frame to every member except exclude. Slow consumers
// are skipped so a stuck peer cannot stall the relay path.
func (r *Room) Broadcast(message []byte, exclude *Client) {
	r.Mu.RLock()
	clients := make([]*Client, 0, len(r.Clients))
	for _, client := range r.Clients {
		if client != exclude {
			clients = append(clients, client)
		}
	}
	r.Mu.RUnlock()

	for _, client := range clients {
		if !client.QueueSend(message) {
			log.Printf("[ERROR] Dropping frame to client %s in room %s, channel full", client.UserID, r.ID)
		}
	}
}

// Registry owns every live room. All state is process memory; the registry
// comes back empty after a restart by design.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// CheckRoom reports whether the room exists and, if so, its protection and
// occupancy. Malformed ids fail closed to not-found without touching state.
func (rg *Registry) CheckRoom(roomID string) (RoomInfo, bool) {
	if !ValidRoomID(roomID) {
		return RoomInfo{}, false
	}

	rg.mu.RLock()
	room, ok := rg.rooms[roomID]
	rg.mu.RUnlock()
	if !ok {
		return RoomInfo{}, false
	}

	return RoomInfo{
		Exists:      true,
		IsProtected: room.Protected,
		HasUsers:    room.HasUsers(),
	}, true
}

// VerifyPassword compares the client-computed hash against the one stored at
// creation. Unknown rooms, malformed ids and unprotected rooms all report
// false; callers cannot distinguish why verification failed.
func (rg *Registry) VerifyPassword(roomID, passwordHash string) bool {
	if !ValidRoomID(roomID) {
		return false
	}

	rg.mu.RLock()
	room, ok := rg.rooms[roomID]
	rg.mu.RUnlock()
	if !ok {
		return false
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.Protected && room.PasswordHash == passwordHash
}

// JoinOrCreate adds the client to the room, creating it on first use. The
// first creator wins the protection flag and hash for the room's lifetime;
// later joins never re-evaluate them. Join does not gate on the stored hash:
// password checking is a separate, client-driven VerifyPassword step.
func (rg *Registry) JoinOrCreate(roomID, passwordHash string, isProtected bool, client *Client) (*Room, error) {
	if !ValidRoomID(roomID) {
		return nil, ErrInvalidRoomID
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()

	room, ok := rg.rooms[roomID]
	if !ok {
		protected := isProtected && passwordHash != ""
		room = NewRoom(roomID, protected, passwordHash)
		rg.rooms[roomID] = room
		metrics.ActiveRooms.Inc()
		log.Printf("[INFO] Room created: %s (protected=%v)", roomID, protected)
	}

	room.Mu.Lock()
	room.Clients[client.UserID] = client
	room.Mu.Unlock()
	log.Printf("[INFO] Client %s joined room %s (%d members)", client.UserID, roomID, room.MemberCount())

	return room, nil
}

// GetRoom returns the room for relay and status lookups. Malformed ids fail
// closed to not-found.
func (rg *Registry) GetRoom(roomID string) (*Room, bool) {
	if !ValidRoomID(roomID) {
		return nil, false
	}
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	room, ok := rg.rooms[roomID]
	return room, ok
}

// GetAllRooms snapshots the current room set for the debug endpoint.
func (rg *Registry) GetAllRooms() []*Room {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	rooms := make([]*Room, 0, len(rg.rooms))
	for _, room := range rg.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Leave removes the client from every room it belongs to, broadcasting a
// departure notice to the remaining members. Rooms left empty are deleted on
// the spot. Calling Leave for a client with no memberships is a no-op.
func (rg *Registry) Leave(client *Client) []string {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	var left []string
	for id, room := range rg.rooms {
		room.Mu.Lock()
		if _, ok := room.Clients[client.UserID]; !ok {
			room.Mu.Unlock()
			continue
		}
		delete(room.Clients, client.UserID)
		empty := len(room.Clients) == 0
		room.Mu.Unlock()

		left = append(left, id)
		if empty {
			delete(rg.rooms, id)
			metrics.ActiveRooms.Dec()
			log.Printf("[INFO] Room deleted: %s (empty)", id)
			continue
		}
		room.Broadcast(MarshalMessage(TypeUserLeft, UserEvent{UserID: client.UserID}), nil)
	}
	return left
}

// SweepExpired deletes rooms that have sat empty past maxAge. Rooms with
// members are never swept regardless of age, and a room already removed by
// Leave is simply not found here.
func (rg *Registry) SweepExpired(maxAge time.Duration) int {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	now := rg.now()
	removed := 0
	for id, room := range rg.rooms {
		room.Mu.RLock()
		empty := len(room.Clients) == 0
		room.Mu.RUnlock()

		if empty && now.Sub(room.CreatedAt) > maxAge {
			delete(rg.rooms, id)
			metrics.ActiveRooms.Dec()
			removed++
			log.Printf("[INFO] Room swept: %s (empty for over %s)", id, maxAge)
		}
	}
	return removed
}

// RunSweeper runs SweepExpired on a fixed interval until done is closed.
func (rg *Registry) RunSweeper(interval, maxAge time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rg.SweepExpired(maxAge)
		case <-done:
			return
		}
	}
}
