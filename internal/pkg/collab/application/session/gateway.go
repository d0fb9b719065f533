package session

import (
	"fmt"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
)

// Leave reasons, used for logs and metrics only. Peers see the same
// participant-left frame whatever the reason.
const (
	reasonLeave      = "leave"
	reasonDisconnect = "disconnect"
	reasonSwitch     = "switch"
	reasonTimeout    = "timeout"
)

// Gateway binds connections to document rooms and keeps the presence
// registry in step with the connection lifecycle.
type Gateway struct {
	registry *collab.Registry
	rooms    port.Rooms
	opts     options
}

// NewGateway constructs a Gateway over registry and rooms.
func NewGateway(registry *collab.Registry, rooms port.Rooms, opts ...Option) *Gateway {
	return &Gateway{registry: registry, rooms: rooms, opts: buildOptions(opts)}
}

// Registry exposes the presence registry the gateway writes to.
func (g *Gateway) Registry() *collab.Registry { return g.registry }

// OnConnect attaches a new connection. A valid claimed identity is stored on
// it; otherwise the connection stays anonymous until a join supplies one.
func (g *Gateway) OnConnect(s port.Session, claimed collab.Identity) {
	if claimed.Valid() {
		s.SetIdentity(claimed)
	}
	g.rooms.Attach(s)
	g.opts.logger.Debug("connection attached", "conn", s.ID(), "user", claimed.UserID)
}

// OnJoin binds s to documentID, registers its participant, sends it the
// current participant list and announces it to the room. Joining a second
// document vacates the first.
func (g *Gateway) OnJoin(s port.Session, documentID string, claimed collab.Identity) error {
	if documentID == "" {
		return collab.ErrMissingDocument
	}

	id, ok := s.Identity()
	switch {
	case !ok && !claimed.Valid():
		return collab.ErrMissingIdentity
	case !ok:
		s.SetIdentity(claimed)
		id = claimed
	case claimed.UserID != "" && claimed.UserID != id.UserID:
		return fmt.Errorf("%w: join as %q on connection of %q", collab.ErrIdentityMismatch, claimed.UserID, id.UserID)
	}

	if prev := s.DocumentID(); prev != "" && prev != documentID {
		g.vacate(s, prev, reasonSwitch)
	}

	participant := collab.NewParticipant(id, s.ID(), g.opts.now())
	g.rooms.Join(documentID, s)
	s.Bind(documentID)
	previous, replaced := g.registry.Register(documentID, participant)

	if replaced && previous.ConnectionID != s.ID() {
		g.replace(documentID, previous)
	}

	others := g.othersIn(documentID, id.UserID)
	if payload, err := encodeParticipantList(documentID, others); err == nil {
		if err := s.Send(payload); err != nil {
			g.sendFailed(s, err)
		}
	}
	if payload, err := encodeParticipantJoined(documentID, participant); err == nil {
		g.rooms.Broadcast(documentID, payload, s.ID())
	}

	g.opts.metrics.Join()
	g.notify(documentID)
	g.opts.logger.Info("participant joined",
		"document", documentID, "user", id.UserID, "conn", s.ID(),
		"replaced", replaced, "peers", len(others))
	return nil
}

// OnLeave vacates the bound room. An empty documentID means the bound one.
func (g *Gateway) OnLeave(s port.Session, documentID string) error {
	bound := s.DocumentID()
	if bound == "" {
		return collab.ErrNotJoined
	}
	if documentID != "" && documentID != bound {
		return collab.ErrDocumentMismatch
	}
	g.vacate(s, bound, reasonLeave)
	return nil
}

// OnDisconnect removes the connection's participant, tells the room and
// detaches the connection. Safe to call more than once.
func (g *Gateway) OnDisconnect(s port.Session) {
	if bound := s.DocumentID(); bound != "" {
		g.vacate(s, bound, reasonDisconnect)
	}
	g.rooms.Detach(s)
}

// Evict handles a participant removed by the reaper: its connection, if still
// attached, leaves the room and is closed, and peers get participant-left.
func (g *Gateway) Evict(ev collab.Eviction) {
	if peer, ok := g.rooms.Lookup(ev.Participant.ConnectionID); ok {
		g.rooms.Leave(ev.DocumentID, peer)
		peer.Close(port.CloseIdleTimeout, "idle timeout")
	}
	g.announceLeft(ev.DocumentID, ev.Participant.UserID, reasonTimeout)
}

func (g *Gateway) vacate(s port.Session, documentID, reason string) {
	g.rooms.Leave(documentID, s)
	s.Bind("")

	id, _ := s.Identity()
	p, err := g.registry.RemoveConnection(documentID, id.UserID, s.ID())
	if err != nil {
		// Already evicted or replaced by a newer connection.
		return
	}
	g.announceLeft(documentID, p.UserID, reason)
}

// replace closes the connection that held the participant before a reconnect.
func (g *Gateway) replace(documentID string, previous collab.Participant) {
	old, ok := g.rooms.Lookup(previous.ConnectionID)
	if !ok {
		return
	}
	g.rooms.Leave(documentID, old)
	if replaced, ok := old.(port.Session); ok {
		replaced.Bind("")
	}
	old.Close(port.CloseSessionReplaced, "session replaced")
	g.opts.logger.Info("participant connection replaced",
		"document", documentID, "user", previous.UserID, "old_conn", previous.ConnectionID)
}

func (g *Gateway) announceLeft(documentID, userID, reason string) {
	payload, err := encodeParticipantLeft(documentID, userID)
	if err != nil {
		g.opts.logger.Error("encode participant-left", "error", err)
		return
	}
	g.rooms.Broadcast(documentID, payload, "")

	g.opts.metrics.Leave(reason)
	g.notify(documentID)
	g.opts.logger.Info("participant left", "document", documentID, "user", userID, "reason", reason)
}

func (g *Gateway) othersIn(documentID, userID string) []collab.Participant {
	all := g.registry.List(documentID)
	others := all[:0]
	for _, p := range all {
		if p.UserID != userID {
			others = append(others, p)
		}
	}
	return others
}

func (g *Gateway) sendFailed(p port.Peer, err error) {
	g.opts.metrics.SendFailed()
	g.opts.logger.Warn("send to connection failed", "conn", p.ID(), "error", err)
}

func (g *Gateway) notify(documentID string) {
	if g.opts.notifier != nil {
		g.opts.notifier.Notify(documentID)
	}
}
