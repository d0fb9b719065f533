// Package client is the session facade editors use to talk to the
// collaborative session endpoint: it owns the websocket, remembers the active
// document and user, and exposes typed sends plus a stream of typed events.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

const (
	writeWait    = 10 * time.Second
	eventsBuffer = 256
)

var (
	ErrNotJoined = errors.New("client: no active document, call Join first")
	ErrClosed    = errors.New("client: connection closed")
)

// Event is one server -> client frame. Fields not used by Type are zero.
type Event struct {
	Type         collab.EventType         `json:"type"`
	DocumentID   string                   `json:"documentId,omitempty"`
	UserID       string                   `json:"userId,omitempty"`
	DisplayName  string                   `json:"displayName,omitempty"`
	AvatarGlyph  string                   `json:"avatarGlyph,omitempty"`
	AvatarColor  string                   `json:"avatarColor,omitempty"`
	Participants []collab.ParticipantView `json:"participants,omitempty"`
	Delta        json.RawMessage          `json:"delta,omitempty"`
	Timestamp    json.RawMessage          `json:"timestamp,omitempty"`
	Cursor       json.RawMessage          `json:"cursor,omitempty"`
	Selection    json.RawMessage          `json:"selection,omitempty"`
	Typing       bool                     `json:"typing,omitempty"`
	Comment      json.RawMessage          `json:"comment,omitempty"`
	CommentID    string                   `json:"commentId,omitempty"`

	// Raw is the frame exactly as received.
	Raw json.RawMessage `json:"-"`
}

// Client is a connected session. It is safe for concurrent use.
type Client struct {
	conn     *websocket.Conn
	identity collab.Identity
	events   chan Event
	done     chan struct{}
	closing  chan struct{}

	writeMu sync.Mutex

	mu         sync.RWMutex
	documentID string
	closed     bool
	closeOnce  sync.Once
	readErr    error
}

// Dial connects to the session endpoint at url (ws:// or wss://) and presents
// the identity as request headers.
func Dial(ctx context.Context, url string, id collab.Identity) (*Client, error) {
	if !id.Valid() {
		return nil, collab.ErrMissingIdentity
	}
	header := http.Header{}
	header.Set("X-User-Id", id.UserID)
	if id.DisplayName != "" {
		header.Set("X-Display-Name", id.DisplayName)
	}
	if id.AvatarGlyph != "" {
		header.Set("X-Avatar-Glyph", id.AvatarGlyph)
	}
	if id.AvatarColor != "" {
		header.Set("X-Avatar-Color", id.AvatarColor)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		identity: id,
		events:   make(chan Event, eventsBuffer),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Identity returns the user this client speaks for.
func (c *Client) Identity() collab.Identity { return c.identity }

// DocumentID returns the active document, or "" before Join.
func (c *Client) DocumentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.documentID
}

// Events delivers server frames in arrival order. It is closed when the
// connection ends; Err then reports why.
func (c *Client) Events() <-chan Event { return c.events }

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readErr
}

// Join binds the session to documentID. Joining another document while one is
// active moves the session; the server vacates the previous room.
func (c *Client) Join(documentID string) error {
	if documentID == "" {
		return collab.ErrMissingDocument
	}
	err := c.write(collab.InboundFrame{
		Type:        collab.EventJoin,
		DocumentID:  documentID,
		UserID:      c.identity.UserID,
		DisplayName: c.identity.DisplayName,
		AvatarGlyph: c.identity.AvatarGlyph,
		AvatarColor: c.identity.AvatarColor,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.documentID = documentID
	c.mu.Unlock()
	return nil
}

// Leave vacates the active document.
func (c *Client) Leave() error {
	documentID, err := c.active()
	if err != nil {
		return err
	}
	if err := c.write(collab.InboundFrame{Type: collab.EventLeave, DocumentID: documentID, UserID: c.identity.UserID}); err != nil {
		return err
	}
	c.mu.Lock()
	c.documentID = ""
	c.mu.Unlock()
	return nil
}

// SendDelta relays an edit delta, stamped with the current time.
func (c *Client) SendDelta(delta json.RawMessage) error {
	return c.SendDeltaAt(delta, time.Now())
}

// SendDeltaAt relays an edit delta with an explicit timestamp.
func (c *Client) SendDeltaAt(delta json.RawMessage, at time.Time) error {
	ts, _ := json.Marshal(at.UnixMilli())
	return c.send(collab.InboundFrame{Type: collab.EventEditDelta, Delta: delta, Timestamp: ts})
}

func (c *Client) MoveCursor(cursor json.RawMessage) error {
	return c.send(collab.InboundFrame{Type: collab.EventCursorUpdate, Cursor: cursor})
}

func (c *Client) Select(selection json.RawMessage) error {
	return c.send(collab.InboundFrame{Type: collab.EventSelectionUpdate, Selection: selection})
}

func (c *Client) StartTyping() error {
	return c.send(collab.InboundFrame{Type: collab.EventTypingStart})
}

func (c *Client) StopTyping() error {
	return c.send(collab.InboundFrame{Type: collab.EventTypingStop})
}

func (c *Client) AddComment(comment json.RawMessage) error {
	return c.send(collab.InboundFrame{Type: collab.EventCommentAdded, Comment: comment})
}

func (c *Client) ResolveComment(commentID string) error {
	return c.send(collab.InboundFrame{Type: collab.EventCommentResolved, CommentID: commentID})
}

// ForceSave asks peers and the document store to persist now.
func (c *Client) ForceSave() error {
	return c.send(collab.InboundFrame{Type: collab.EventForceSave})
}

// Close sends a normal close frame and tears down the connection. Done is
// closed shortly after, even if Events was never drained.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.closing)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// send stamps the active document and user onto a document-scoped frame.
func (c *Client) send(f collab.InboundFrame) error {
	documentID, err := c.active()
	if err != nil {
		return err
	}
	f.DocumentID = documentID
	f.UserID = c.identity.UserID
	return c.write(f)
}

func (c *Client) active() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", ErrClosed
	}
	if c.documentID == "" {
		return "", ErrNotJoined
	}
	return c.documentID, nil
}

func (c *Client) write(f collab.InboundFrame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.readErr = err
			}
			c.mu.Unlock()
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		ev.Raw = data
		select {
		case c.events <- ev:
		case <-c.closing:
			// Nobody is draining Events; stop instead of blocking forever.
			return
		}
	}
}
