package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

var nullJSON = json.RawMessage("null")

// Router applies inbound client events to the registry and relays them to
// the other connections of the sender's room. Payloads are never transformed:
// there is no merge step, clients apply deltas themselves.
type Router struct {
	gateway  *Gateway
	registry *collab.Registry
	rooms    port.Rooms
	opts     options
}

// NewRouter constructs a Router that shares the gateway's registry and rooms.
func NewRouter(gateway *Gateway, rooms port.Rooms, opts ...Option) *Router {
	return &Router{
		gateway:  gateway,
		registry: gateway.Registry(),
		rooms:    rooms,
		opts:     buildOptions(opts),
	}
}

// Handle decodes and dispatches one inbound frame. Protocol errors are logged
// and dropped; identity errors on join close the connection.
func (r *Router) Handle(s port.Session, data []byte) {
	frame, err := collab.DecodeFrame(data)
	if err != nil {
		r.drop(s, "", err)
		return
	}
	if err := r.Dispatch(s, frame); err != nil {
		if frame.Type == collab.EventJoin &&
			(errors.Is(err, collab.ErrMissingIdentity) || errors.Is(err, collab.ErrIdentityMismatch)) {
			r.opts.metrics.Dropped("identity")
			r.opts.logger.Warn("rejecting connection without valid identity", "conn", s.ID(), "error", err)
			s.Close(port.CloseIdentityError, "identity required")
			return
		}
		r.drop(s, frame.Type, err)
	}
}

// Dispatch routes a decoded frame. It returns the protocol error, if any, so
// callers can decide how to surface it.
func (r *Router) Dispatch(s port.Session, f collab.InboundFrame) error {
	switch f.Type {
	case collab.EventJoin:
		return r.gateway.OnJoin(s, f.DocumentID, f.ClaimedIdentity())
	case collab.EventLeave:
		return r.gateway.OnLeave(s, f.DocumentID)
	}

	documentID, userID, err := r.sender(s, f)
	if err != nil {
		return err
	}

	now := r.opts.now()
	// Any frame from the live connection counts as activity, even one that
	// is dropped below. Evicted or replaced connections stop here.
	if _, err := r.registry.UpdateConnection(documentID, userID, s.ID(), collab.Patch{LastSeenAt: now}); err != nil {
		return err
	}
	patch := collab.Patch{LastSeenAt: now}
	var payload []byte

	switch f.Type {
	case collab.EventEditDelta:
		if len(f.Delta) == 0 {
			return fmt.Errorf("%w: edit-delta without delta", collab.ErrMalformedFrame)
		}
		ts := f.Timestamp
		if len(ts) == 0 {
			ts = strconv.AppendInt(nil, now.UnixMilli(), 10)
		}
		payload, err = encodeEditDelta(documentID, userID, ts, f.Delta)
	case collab.EventCursorUpdate:
		patch.Cursor = orNull(f.Cursor)
		payload, err = encodeCursor(documentID, userID, f.Cursor)
	case collab.EventSelectionUpdate:
		patch.Selection = orNull(f.Selection)
		payload, err = encodeSelection(documentID, userID, f.Selection)
	case collab.EventTypingStart, collab.EventTypingStop:
		typing := f.Type == collab.EventTypingStart
		patch.Typing = &typing
		payload, err = encodeTyping(documentID, userID, typing)
	case collab.EventCommentAdded:
		if len(f.Comment) == 0 {
			return fmt.Errorf("%w: comment-added without comment", collab.ErrMalformedFrame)
		}
		payload, err = encodeCommentAdded(documentID, userID, f.Comment)
	case collab.EventCommentResolved:
		if f.CommentID == "" {
			return fmt.Errorf("%w: comment-resolved without commentId", collab.ErrMalformedFrame)
		}
		payload, err = encodeCommentResolved(documentID, userID, f.CommentID)
	case collab.EventForceSave:
		payload, err = encodeSaveRequested(documentID, userID)
	default:
		return fmt.Errorf("%w: %q", collab.ErrUnknownEvent, f.Type)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", collab.ErrMalformedFrame, err)
	}

	if _, err := r.registry.UpdateConnection(documentID, userID, s.ID(), patch); err != nil {
		return err
	}

	if f.Type == collab.EventForceSave {
		r.requestSave(documentID, userID, now)
	}

	r.rooms.Broadcast(documentID, payload, s.ID())
	r.opts.metrics.Relayed(string(f.Type))
	return nil
}

// sender resolves the bound document and user for a relayed event.
func (r *Router) sender(s port.Session, f collab.InboundFrame) (documentID, userID string, err error) {
	documentID = s.DocumentID()
	if documentID == "" {
		return "", "", collab.ErrNotJoined
	}
	if f.DocumentID != "" && f.DocumentID != documentID {
		return "", "", collab.ErrDocumentMismatch
	}
	id, ok := s.Identity()
	if !ok {
		return "", "", collab.ErrMissingIdentity
	}
	if f.UserID != "" && f.UserID != id.UserID {
		return "", "", fmt.Errorf("%w: event from %q on connection of %q", collab.ErrIdentityMismatch, f.UserID, id.UserID)
	}
	return documentID, id.UserID, nil
}

// requestSave runs off the connection's read goroutine so a slow queue never
// delays relaying.
func (r *Router) requestSave(documentID, userID string, at time.Time) {
	if r.opts.saver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.saveTimeout)
		defer cancel()
		id, err := r.opts.saver.Execute(ctx, usecase.RequestSaveInput{
			DocumentID:  documentID,
			RequestedBy: userID,
			RequestedAt: at,
		})
		if err != nil {
			r.opts.logger.Error("save request failed", "document", documentID, "user", userID, "error", err)
			return
		}
		if id == "" {
			r.opts.logger.Debug("save already pending", "document", documentID, "user", userID)
			return
		}
		r.opts.logger.Debug("save requested", "document", documentID, "user", userID, "task", id)
	}()
}

func (r *Router) drop(s port.Session, t collab.EventType, err error) {
	reason := "protocol"
	if errors.Is(err, collab.ErrMalformedFrame) {
		reason = "malformed"
	}
	r.opts.metrics.Dropped(reason)
	id, _ := s.Identity()
	r.opts.logger.Warn("dropping inbound frame",
		"conn", s.ID(), "user", id.UserID, "document", s.DocumentID(), "type", string(t), "error", err)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nullJSON
	}
	return raw
}
