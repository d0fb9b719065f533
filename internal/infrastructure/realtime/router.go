package realtime

import (
	"sync"

	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
)

// Router tracks attached connections and the document rooms they are bound to.
// Fan-out iterates over a snapshot taken under the lock, so a slow peer never
// holds the lock while others wait.
type Router struct {
	mu           sync.RWMutex
	sessions     map[string]port.Peer            // connectionID -> peer
	rooms        map[string]map[string]port.Peer // documentID -> connectionID -> peer
	sessionRooms map[string]map[string]struct{}  // connectionID -> set of documentIDs

	onSendError func(p port.Peer, err error)
}

var _ port.Rooms = (*Router)(nil)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithSendErrorHandler is called, outside the lock, for every failed fan-out send.
func WithSendErrorHandler(fn func(p port.Peer, err error)) RouterOption {
	return func(r *Router) { r.onSendError = fn }
}

// NewRouter constructs an initialized Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		sessions:     make(map[string]port.Peer),
		rooms:        make(map[string]map[string]port.Peer),
		sessionRooms: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach registers a connection so it can later be looked up by id.
func (r *Router) Attach(p port.Peer) {
	r.mu.Lock()
	r.sessions[p.ID()] = p
	r.mu.Unlock()
}

// Detach removes a connection and all of its room memberships.
func (r *Router) Detach(p port.Peer) {
	r.mu.Lock()
	r.detachLocked(p.ID())
	r.mu.Unlock()
}

// Lookup returns the attached connection with the given id.
func (r *Router) Lookup(connectionID string) (port.Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.sessions[connectionID]
	return p, ok
}

// Join adds the connection to the document room. Unattached connections are ignored.
func (r *Router) Join(documentID string, p port.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.sessions[id]; !ok {
		return
	}

	room := r.rooms[documentID]
	if room == nil {
		room = make(map[string]port.Peer)
		r.rooms[documentID] = room
	}
	room[id] = p

	memberships := r.sessionRooms[id]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.sessionRooms[id] = memberships
	}
	memberships[documentID] = struct{}{}
}

// Leave removes the connection from the document room.
func (r *Router) Leave(documentID string, p port.Peer) {
	r.mu.Lock()
	r.leaveLocked(documentID, p.ID())
	r.mu.Unlock()
}

// Broadcast writes payload to all peers in the room except excludeConnectionID.
func (r *Router) Broadcast(documentID string, payload []byte, excludeConnectionID string) int {
	peers := r.snapshot(documentID, excludeConnectionID)

	delivered := 0
	for _, p := range peers {
		err := p.Send(payload)
		if err == nil {
			delivered++
			continue
		}
		if r.onSendError != nil {
			r.onSendError(p, err)
		}
	}
	return delivered
}

// Members returns the number of connections in a room.
func (r *Router) Members(documentID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[documentID])
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]port.Peer, 0, len(r.sessions))
	for _, p := range r.sessions {
		sessions = append(sessions, p)
	}
	r.sessions = make(map[string]port.Peer)
	r.rooms = make(map[string]map[string]port.Peer)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, p := range sessions {
		p.Close(port.CloseGoingAway, "server shutdown")
	}
}

func (r *Router) snapshot(documentID, excludeConnectionID string) []port.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[documentID]
	if len(room) == 0 {
		return nil
	}
	peers := make([]port.Peer, 0, len(room))
	for id, p := range room {
		if id == excludeConnectionID {
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

func (r *Router) detachLocked(connectionID string) {
	delete(r.sessions, connectionID)
	for documentID := range r.sessionRooms[connectionID] {
		r.leaveLocked(documentID, connectionID)
	}
	delete(r.sessionRooms, connectionID)
}

func (r *Router) leaveLocked(documentID, connectionID string) {
	if connectionID == "" {
		return
	}
	if room := r.rooms[documentID]; room != nil {
		delete(room, connectionID)
		if len(room) == 0 {
			delete(r.rooms, documentID)
		}
	}
	if memberships, ok := r.sessionRooms[connectionID]; ok {
		delete(memberships, documentID)
		if len(memberships) == 0 {
			delete(r.sessionRooms, connectionID)
		}
	}
}
