package collab

import (
	"encoding/json"
	"time"
)

// Identity is the trusted (userId, displayName, avatar) claim supplied by the
// identity provider for one connection. It is never re-validated after join.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarGlyph string `json:"avatarGlyph"`
	AvatarColor string `json:"avatarColor"`
}

// Valid reports whether the identity carries a user id.
func (i Identity) Valid() bool {
	return i.UserID != ""
}

// Participant is one user's live presence inside one document room.
// Key: (DocumentID, UserID). ConnectionID changes across reconnects.
type Participant struct {
	UserID       string
	ConnectionID string
	DisplayName  string
	AvatarGlyph  string
	AvatarColor  string

	// Cursor and Selection are opaque client payloads; nil means unknown.
	Cursor    json.RawMessage
	Selection json.RawMessage
	Typing    bool

	JoinedAt   time.Time
	LastSeenAt time.Time
}

// NewParticipant builds a participant from an identity with empty cursor,
// selection and typing state.
func NewParticipant(id Identity, connectionID string, now time.Time) Participant {
	return Participant{
		UserID:       id.UserID,
		ConnectionID: connectionID,
		DisplayName:  id.DisplayName,
		AvatarGlyph:  id.AvatarGlyph,
		AvatarColor:  id.AvatarColor,
		JoinedAt:     now,
		LastSeenAt:   now,
	}
}

// Identity returns the presentation fields captured at join time.
func (p Participant) Identity() Identity {
	return Identity{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AvatarGlyph: p.AvatarGlyph,
		AvatarColor: p.AvatarColor,
	}
}

func (p Participant) clone() Participant {
	p.Cursor = cloneRaw(p.Cursor)
	p.Selection = cloneRaw(p.Selection)
	return p
}

// Patch carries a partial participant update. Nil fields are left untouched.
type Patch struct {
	Cursor     json.RawMessage
	Selection  json.RawMessage
	Typing     *bool
	LastSeenAt time.Time
}

func (pt Patch) applyTo(p *Participant) {
	if pt.Cursor != nil {
		p.Cursor = cloneRaw(pt.Cursor)
	}
	if pt.Selection != nil {
		p.Selection = cloneRaw(pt.Selection)
	}
	if pt.Typing != nil {
		p.Typing = *pt.Typing
	}
	if pt.LastSeenAt.After(p.LastSeenAt) {
		p.LastSeenAt = pt.LastSeenAt
	}
}

// Eviction identifies a participant removed by a staleness sweep.
type Eviction struct {
	DocumentID  string
	Participant Participant
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
