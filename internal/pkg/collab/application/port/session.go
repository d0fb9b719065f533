package port

import (
	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

// Websocket close codes used by the session layer.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseSessionReplaced = 4001
	CloseIdentityError   = 4003
	CloseIdleTimeout     = 4008
)

// Peer is the outbound half of one transport connection.
// Send must not block: implementations queue or fail fast.
type Peer interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Session is a Peer plus the per-connection state the gateway keeps:
// the trusted identity and the document the connection is bound to.
// Implementations must be safe for concurrent use.
type Session interface {
	Peer
	Identity() (collab.Identity, bool)
	SetIdentity(id collab.Identity)
	DocumentID() string
	Bind(documentID string)
}

// Rooms is the connection fan-out table keyed by document id. It holds no
// presence state; that belongs to the registry.
type Rooms interface {
	Attach(p Peer)
	Detach(p Peer)
	Lookup(connectionID string) (Peer, bool)
	Join(documentID string, p Peer)
	Leave(documentID string, p Peer)
	// Broadcast delivers payload to every peer in the room except
	// excludeConnectionID and returns how many sends succeeded.
	Broadcast(documentID string, payload []byte, excludeConnectionID string) int
}
