// Package registry tracks connected signaling sessions and the two-seat rooms
// they occupy. Mutations on one room are serialized by that room's lock, so
// unrelated rooms never wait on each other.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// RoomCapacity is the maximum number of sessions a room can hold.
const RoomCapacity = 2

var ErrUnknownSession = errors.New("unknown session")

// SessionID identifies one connected client for the lifetime of its channel.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func (id SessionID) String() string {
	return string(id)
}

type JoinResult int

const (
	Joined JoinResult = iota
	RoomFull
	AlreadyInRoom
)

func (r JoinResult) String() string {
	switch r {
	case Joined:
		return "joined"
	case RoomFull:
		return "room-full"
	case AlreadyInRoom:
		return "already-in-room"
	default:
		return "unknown"
	}
}

// JoinOutcome is the result of a join along with the occupant that was
// already present, if any. Repeat marks a join of the room the session
// already occupied.
type JoinOutcome struct {
	Result JoinResult
	Peer   SessionID
	Repeat bool
}

// Departure describes a session leaving a room. Peer is the remaining
// occupant that must be told, empty when the room emptied.
type Departure struct {
	RoomID string
	Peer   SessionID
}

type session struct {
	mu     sync.Mutex
	roomID string
	gone   bool
}

type room struct {
	mu      sync.Mutex
	id      string
	members map[SessionID]struct{}
	// dead is set once the room emptied and was removed from the registry.
	dead bool
}

func (r *room) other(id SessionID) SessionID {
	for member := range r.members {
		if member != id {
			return member
		}
	}
	return ""
}

// Registry owns session and room state for a relay.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*session
	rooms    map[string]*room
}

func New() *Registry {
	return &Registry{
		sessions: make(map[SessionID]*session),
		rooms:    make(map[string]*room),
	}
}

// Connect allocates a fresh session identifier.
func (r *Registry) Connect() SessionID {
	id := NewSessionID()

	r.mu.Lock()
	r.sessions[id] = &session{}
	r.mu.Unlock()

	return id
}

// Connected reports whether id belongs to a live session.
func (r *Registry) Connected(id SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// RoomOf returns the room the session currently occupies.
func (r *Registry) RoomOf(id SessionID) (string, bool) {
	s := r.session(id)
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.roomID != ""
}

// Disconnect leaves the session's room, if any, and forgets the session.
func (r *Registry) Disconnect(id SessionID) (Departure, bool) {
	s := r.session(id)
	if s == nil {
		return Departure{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dep, left := r.leaveLocked(id, s)
	s.gone = true

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	return dep, left
}

// Join places the session in roomID, creating the room if needed.
// Joining the room the session already occupies is a no-op reporting Joined.
func (r *Registry) Join(id SessionID, roomID string) (JoinOutcome, error) {
	s := r.session(id)
	if s == nil {
		return JoinOutcome{}, ErrUnknownSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gone {
		return JoinOutcome{}, ErrUnknownSession
	}

	if s.roomID != "" && s.roomID != roomID {
		return JoinOutcome{Result: AlreadyInRoom}, nil
	}

	for {
		rm := r.acquireRoom(roomID)
		rm.mu.Lock()

		// Lost a race with the last member leaving; the record is gone.
		if rm.dead {
			rm.mu.Unlock()
			continue
		}

		if _, ok := rm.members[id]; ok {
			peer := rm.other(id)
			rm.mu.Unlock()
			return JoinOutcome{Result: Joined, Peer: peer, Repeat: true}, nil
		}

		if len(rm.members) >= RoomCapacity {
			rm.mu.Unlock()
			return JoinOutcome{Result: RoomFull}, nil
		}

		peer := rm.other(id)
		rm.members[id] = struct{}{}
		s.roomID = roomID
		rm.mu.Unlock()

		return JoinOutcome{Result: Joined, Peer: peer}, nil
	}
}

// Leave removes the session from its room. The room record is deleted when it
// becomes empty. It reports false when the session was not in a room.
func (r *Registry) Leave(id SessionID) (Departure, bool) {
	s := r.session(id)
	if s == nil {
		return Departure{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return r.leaveLocked(id, s)
}

func (r *Registry) leaveLocked(id SessionID, s *session) (Departure, bool) {
	if s.roomID == "" {
		return Departure{}, false
	}

	roomID := s.roomID
	s.roomID = ""

	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return Departure{RoomID: roomID}, true
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.members, id)
	peer := rm.other(id)

	if len(rm.members) == 0 {
		rm.dead = true
		r.mu.Lock()
		if r.rooms[roomID] == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
	}

	return Departure{RoomID: roomID, Peer: peer}, true
}

// Members returns the sessions in roomID, sorted. Diagnostics only.
func (r *Registry) Members(roomID string) []SessionID {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.dead || len(rm.members) == 0 {
		return nil
	}

	members := make([]SessionID, 0, len(rm.members))
	for id := range rm.members {
		members = append(members, id)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Rooms returns the identifiers of all occupied rooms, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	ids := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.dead && len(rm.members) > 0 {
			ids = append(ids, rm.id)
		}
		rm.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) session(id SessionID) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// acquireRoom returns the live record for roomID, creating it when absent.
func (r *Registry) acquireRoom(roomID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[roomID]; ok {
		return rm
	}

	rm := &room{
		id:      roomID,
		members: make(map[SessionID]struct{}, RoomCapacity),
	}
	r.rooms[roomID] = rm
	return rm
}
