package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/realtime"
	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
)

var errSendFailed = errors.New("fake: send failed")

type fakeSession struct {
	id string

	mu         sync.Mutex
	identity   collab.Identity
	hasID      bool
	documentID string
	sent       [][]byte
	closed     bool
	closeCode  int
	failSend   bool
}

var _ port.Session = (*fakeSession)(nil)

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failSend {
		return errSendFailed
	}
	s.sent = append(s.sent, append([]byte(nil), payload...))
	return nil
}

func (s *fakeSession) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed, s.closeCode = true, code
	}
}

func (s *fakeSession) Identity() (collab.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.hasID
}

func (s *fakeSession) SetIdentity(id collab.Identity) {
	s.mu.Lock()
	s.identity, s.hasID = id, true
	s.mu.Unlock()
}

func (s *fakeSession) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}

func (s *fakeSession) Bind(documentID string) {
	s.mu.Lock()
	s.documentID = documentID
	s.mu.Unlock()
}

func (s *fakeSession) isClosed() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.closeCode
}

// frames decodes everything sent so far and clears the buffer.
func (s *fakeSession) frames(t *testing.T) []map[string]json.RawMessage {
	t.Helper()
	s.mu.Lock()
	sent := s.sent
	s.sent = nil
	s.mu.Unlock()

	out := make([]map[string]json.RawMessage, 0, len(sent))
	for _, b := range sent {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(b, &m), string(b))
		out = append(out, m)
	}
	return out
}

func (s *fakeSession) rawSent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func str(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v string
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func types(t *testing.T, frames []map[string]json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, str(t, f["type"]))
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t        *testing.T
	clock    *testClock
	registry *collab.Registry
	rooms    *realtime.Router
	gateway  *Gateway
	router   *Router
	reaper   *Reaper
	next     int
}

func newHarness(t *testing.T, extra ...Option) *harness {
	t.Helper()
	h := &harness{t: t, clock: newTestClock(), registry: collab.NewRegistry(), rooms: realtime.NewRouter()}
	opts := append([]Option{WithClock(h.clock.Now)}, extra...)
	h.gateway = NewGateway(h.registry, h.rooms, opts...)
	h.router = NewRouter(h.gateway, h.rooms, opts...)
	h.reaper = NewReaper(h.gateway, 30*time.Minute, 5*time.Minute, opts...)
	return h
}

// connect attaches a new session; an empty userID leaves it anonymous.
func (h *harness) connect(userID string) *fakeSession {
	h.next++
	s := &fakeSession{id: "conn-" + string(rune('a'+h.next-1))}
	h.gateway.OnConnect(s, collab.Identity{
		UserID:      userID,
		DisplayName: "User " + userID,
		AvatarGlyph: "U",
		AvatarColor: "#336699",
	})
	return s
}

func (h *harness) send(s *fakeSession, frame string) {
	h.router.Handle(s, []byte(frame))
}

func (h *harness) join(s *fakeSession, documentID string) {
	h.t.Helper()
	require.NoError(h.t, h.gateway.OnJoin(s, documentID, collab.Identity{}))
}
