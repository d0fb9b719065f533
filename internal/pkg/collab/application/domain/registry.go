package collab

import (
	"sync"
	"time"
)

// Registry is the in-memory presence table: documentID -> room of participants.
//
// A single mutex guards every room, and each operation holds it for its whole
// duration, so readers never observe a room mid-mutation. No method performs
// I/O while holding the lock; callers broadcast after the call returns using
// the copies it hands back.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	participants map[string]*Participant // userID -> participant
	order        []string                // userIDs in join order
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Register inserts or replaces the participant for (documentID, p.UserID),
// creating the room on first use. A replacement keeps the user's original
// join-order slot and JoinedAt. It returns the previous entry, if any.
func (r *Registry) Register(documentID string, p Participant) (previous Participant, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[documentID]
	if rm == nil {
		rm = &room{participants: make(map[string]*Participant)}
		r.rooms[documentID] = rm
	}

	stored := p.clone()
	if existing, ok := rm.participants[p.UserID]; ok {
		previous, replaced = existing.clone(), true
		if !existing.JoinedAt.IsZero() {
			stored.JoinedAt = existing.JoinedAt
		}
	} else {
		rm.order = append(rm.order, p.UserID)
	}
	rm.participants[p.UserID] = &stored
	return previous, replaced
}

// Update merges patch into the participant and returns the merged copy.
func (r *Registry) Update(documentID, userID string, patch Patch) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(documentID, userID, "", patch)
}

// UpdateConnection is Update restricted to the participant currently held by
// connectionID. Frames still arriving on a replaced connection get
// ErrParticipantNotFound and never touch the newer entry.
func (r *Registry) UpdateConnection(documentID, userID, connectionID string, patch Patch) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(documentID, userID, connectionID, patch)
}

func (r *Registry) updateLocked(documentID, userID, connectionID string, patch Patch) (Participant, error) {
	rm := r.rooms[documentID]
	if rm == nil {
		return Participant{}, ErrParticipantNotFound
	}
	p, ok := rm.participants[userID]
	if !ok || (connectionID != "" && p.ConnectionID != connectionID) {
		return Participant{}, ErrParticipantNotFound
	}
	patch.applyTo(p)
	return p.clone(), nil
}

// Remove deletes the participant and drops the room once it is empty.
func (r *Registry) Remove(documentID, userID string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(documentID, userID, "")
}

// RemoveConnection is Remove restricted to the participant currently held by
// connectionID. A connection that was replaced by a reconnect gets
// ErrParticipantNotFound and leaves the newer entry alone.
func (r *Registry) RemoveConnection(documentID, userID, connectionID string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(documentID, userID, connectionID)
}

// Get returns a copy of one participant.
func (r *Registry) Get(documentID, userID string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[documentID]
	if rm == nil {
		return Participant{}, ErrParticipantNotFound
	}
	p, ok := rm.participants[userID]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	return p.clone(), nil
}

// List returns the room's participants in join order.
func (r *Registry) List(documentID string) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[documentID]
	if rm == nil {
		return nil
	}
	out := make([]Participant, 0, len(rm.order))
	for _, uid := range rm.order {
		out = append(out, rm.participants[uid].clone())
	}
	return out
}

// SweepStale removes every participant whose LastSeenAt is older than
// now-timeout and returns what it removed.
func (r *Registry) SweepStale(timeout time.Duration, now time.Time) []Eviction {
	cutoff := now.Add(-timeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Eviction
	for documentID, rm := range r.rooms {
		var stale []string
		for _, uid := range rm.order {
			if rm.participants[uid].LastSeenAt.Before(cutoff) {
				stale = append(stale, uid)
			}
		}
		for _, uid := range stale {
			p, err := r.removeLocked(documentID, uid, "")
			if err != nil {
				continue
			}
			evicted = append(evicted, Eviction{DocumentID: documentID, Participant: p})
		}
	}
	return evicted
}

// Has reports whether a room exists for documentID.
func (r *Registry) Has(documentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[documentID]
	return ok
}

// Rooms returns the number of live rooms.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) removeLocked(documentID, userID, connectionID string) (Participant, error) {
	rm := r.rooms[documentID]
	if rm == nil {
		return Participant{}, ErrParticipantNotFound
	}
	p, ok := rm.participants[userID]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	if connectionID != "" && p.ConnectionID != connectionID {
		return Participant{}, ErrParticipantNotFound
	}

	delete(rm.participants, userID)
	for i, uid := range rm.order {
		if uid == userID {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	if len(rm.participants) == 0 {
		delete(r.rooms, documentID)
	}
	return *p, nil
}
