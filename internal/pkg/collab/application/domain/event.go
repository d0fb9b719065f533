package collab

import (
	"encoding/json"
	"fmt"
)

// EventType tags every frame on the wire.
type EventType string

// Client -> server events.
const (
	EventJoin            EventType = "join"
	EventLeave           EventType = "leave"
	EventEditDelta       EventType = "edit-delta"
	EventCursorUpdate    EventType = "cursor-update"
	EventSelectionUpdate EventType = "selection-update"
	EventTypingStart     EventType = "typing-start"
	EventTypingStop      EventType = "typing-stop"
	EventCommentAdded    EventType = "comment-added"
	EventCommentResolved EventType = "comment-resolved"
	EventForceSave       EventType = "force-save"
)

// Server -> client events. Relayed client events keep their own type.
const (
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantList   EventType = "participant-list"
	EventParticipantLeft   EventType = "participant-left"
	EventSaveRequested     EventType = "save-requested"
)

// InboundFrame is the union of every client -> server event. Opaque payloads
// stay as raw JSON so they can be relayed without re-encoding.
type InboundFrame struct {
	Type        EventType       `json:"type"`
	DocumentID  string          `json:"documentId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	AvatarGlyph string          `json:"avatarGlyph,omitempty"`
	AvatarColor string          `json:"avatarColor,omitempty"`
	Delta       json.RawMessage `json:"delta,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	Cursor      json.RawMessage `json:"cursor,omitempty"`
	Selection   json.RawMessage `json:"selection,omitempty"`
	Comment     json.RawMessage `json:"comment,omitempty"`
	CommentID   string          `json:"commentId,omitempty"`
}

// DecodeFrame parses one inbound frame.
func DecodeFrame(data []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return InboundFrame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

// ClaimedIdentity returns the identity fields carried by a join frame.
func (f InboundFrame) ClaimedIdentity() Identity {
	return Identity{
		UserID:      f.UserID,
		DisplayName: f.DisplayName,
		AvatarGlyph: f.AvatarGlyph,
		AvatarColor: f.AvatarColor,
	}
}

// ParticipantView is the public shape of a participant sent to clients.
type ParticipantView struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName"`
	AvatarGlyph string          `json:"avatarGlyph"`
	AvatarColor string          `json:"avatarColor"`
	Cursor      json.RawMessage `json:"cursor"`
	Selection   json.RawMessage `json:"selection"`
	Typing      bool            `json:"typing"`
	LastSeenAt  int64           `json:"lastSeenAt"`
}

// View converts a participant into its wire form.
func (p Participant) View() ParticipantView {
	v := ParticipantView{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AvatarGlyph: p.AvatarGlyph,
		AvatarColor: p.AvatarColor,
		Cursor:      p.Cursor,
		Selection:   p.Selection,
		Typing:      p.Typing,
		LastSeenAt:  p.LastSeenAt.UnixMilli(),
	}
	if len(v.Cursor) == 0 {
		v.Cursor = json.RawMessage("null")
	}
	if len(v.Selection) == 0 {
		v.Selection = json.RawMessage("null")
	}
	return v
}
