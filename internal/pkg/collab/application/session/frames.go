package session

import (
	"encoding/json"
	"strconv"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

// header is the fixed part of every outbound frame.
type header struct {
	Type       collab.EventType `json:"type"`
	DocumentID string           `json:"documentId"`
	UserID     string           `json:"userId,omitempty"`
}

type participantJoinedFrame struct {
	Type        collab.EventType `json:"type"`
	DocumentID  string           `json:"documentId"`
	UserID      string           `json:"userId"`
	DisplayName string           `json:"displayName"`
	AvatarGlyph string           `json:"avatarGlyph"`
	AvatarColor string           `json:"avatarColor"`
}

type participantListFrame struct {
	Type         collab.EventType         `json:"type"`
	DocumentID   string                   `json:"documentId"`
	Participants []collab.ParticipantView `json:"participants"`
}

type typingFrame struct {
	Type       collab.EventType `json:"type"`
	DocumentID string           `json:"documentId"`
	UserID     string           `json:"userId"`
	Typing     bool             `json:"typing"`
}

type commentResolvedFrame struct {
	Type       collab.EventType `json:"type"`
	DocumentID string           `json:"documentId"`
	UserID     string           `json:"userId"`
	CommentID  string           `json:"commentId"`
}

// rawField is a JSON value appended verbatim after the encoded header.
type rawField struct {
	key   string
	value json.RawMessage
}

// encodeWithRaw marshals head and appends fields without re-encoding them,
// so relayed payloads reach peers byte-for-byte as the sender wrote them.
// Each value must already be valid JSON; a nil value is written as null.
func encodeWithRaw(head any, fields ...rawField) ([]byte, error) {
	b, err := json.Marshal(head)
	if err != nil {
		return nil, err
	}
	size := len(b)
	for _, f := range fields {
		size += len(f.key) + len(f.value) + 8
	}
	out := make([]byte, 0, size)
	out = append(out, b[:len(b)-1]...)
	needComma := len(b) > 2
	for _, f := range fields {
		if needComma {
			out = append(out, ',')
		}
		needComma = true
		out = strconv.AppendQuote(out, f.key)
		out = append(out, ':')
		if len(f.value) == 0 {
			out = append(out, "null"...)
		} else {
			out = append(out, f.value...)
		}
	}
	return append(out, '}'), nil
}

func encodeParticipantJoined(documentID string, p collab.Participant) ([]byte, error) {
	return json.Marshal(participantJoinedFrame{
		Type:        collab.EventParticipantJoined,
		DocumentID:  documentID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		AvatarGlyph: p.AvatarGlyph,
		AvatarColor: p.AvatarColor,
	})
}

func encodeParticipantList(documentID string, participants []collab.Participant) ([]byte, error) {
	views := make([]collab.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, p.View())
	}
	return json.Marshal(participantListFrame{
		Type:         collab.EventParticipantList,
		DocumentID:   documentID,
		Participants: views,
	})
}

func encodeParticipantLeft(documentID, userID string) ([]byte, error) {
	return json.Marshal(header{Type: collab.EventParticipantLeft, DocumentID: documentID, UserID: userID})
}

func encodeEditDelta(documentID, userID string, timestamp, delta json.RawMessage) ([]byte, error) {
	return encodeWithRaw(
		header{Type: collab.EventEditDelta, DocumentID: documentID, UserID: userID},
		rawField{key: "timestamp", value: timestamp},
		rawField{key: "delta", value: delta},
	)
}

func encodeCursor(documentID, userID string, cursor json.RawMessage) ([]byte, error) {
	return encodeWithRaw(
		header{Type: collab.EventCursorUpdate, DocumentID: documentID, UserID: userID},
		rawField{key: "cursor", value: cursor},
	)
}

func encodeSelection(documentID, userID string, selection json.RawMessage) ([]byte, error) {
	return encodeWithRaw(
		header{Type: collab.EventSelectionUpdate, DocumentID: documentID, UserID: userID},
		rawField{key: "selection", value: selection},
	)
}

func encodeTyping(documentID, userID string, typing bool) ([]byte, error) {
	t := collab.EventTypingStop
	if typing {
		t = collab.EventTypingStart
	}
	return json.Marshal(typingFrame{Type: t, DocumentID: documentID, UserID: userID, Typing: typing})
}

func encodeCommentAdded(documentID, userID string, comment json.RawMessage) ([]byte, error) {
	return encodeWithRaw(
		header{Type: collab.EventCommentAdded, DocumentID: documentID, UserID: userID},
		rawField{key: "comment", value: comment},
	)
}

func encodeCommentResolved(documentID, userID, commentID string) ([]byte, error) {
	return json.Marshal(commentResolvedFrame{
		Type:       collab.EventCommentResolved,
		DocumentID: documentID,
		UserID:     userID,
		CommentID:  commentID,
	})
}

func encodeSaveRequested(documentID, userID string) ([]byte, error) {
	return json.Marshal(header{Type: collab.EventSaveRequested, DocumentID: documentID, UserID: userID})
}
