package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

func twoInRoom(t *testing.T, h *harness) (a, b *fakeSession) {
	t.Helper()
	a = h.connect("u1")
	b = h.connect("u2")
	h.join(a, "d1")
	h.join(b, "d1")
	a.frames(t)
	b.frames(t)
	return a, b
}

func TestEditDeltaRelayedVerbatim(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)
	c := h.connect("u3")
	h.join(c, "d1")
	a.frames(t)
	b.frames(t)
	c.frames(t)

	delta := `{ "ops" : [ {"insert":"héllo\n"}, {"retain": 5 } ] }`
	h.send(a, `{"type":"edit-delta","documentId":"d1","userId":"u1","timestamp":1700000000000,"delta":`+delta+`}`)

	for _, peer := range []*fakeSession{b, c} {
		raw := peer.rawSent()
		require.Len(t, raw, 1)
		assert.Contains(t, string(raw[0]), `"delta":`+delta)

		frames := peer.frames(t)
		assert.Equal(t, "edit-delta", str(t, frames[0]["type"]))
		assert.Equal(t, "u1", str(t, frames[0]["userId"]))
		assert.Equal(t, "d1", str(t, frames[0]["documentId"]))
		assert.Equal(t, delta, string(frames[0]["delta"]))
		assert.Equal(t, "1700000000000", string(frames[0]["timestamp"]))
	}
	assert.Empty(t, a.frames(t), "sender never receives its own delta")
}

func TestEditDeltaWithoutTimestampIsStamped(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)

	h.send(a, `{"type":"edit-delta","delta":[1,2,3]}`)

	frames := b.frames(t)
	require.Len(t, frames, 1)
	var ts int64
	require.NoError(t, json.Unmarshal(frames[0]["timestamp"], &ts))
	assert.Equal(t, h.clock.Now().UnixMilli(), ts)
	assert.Equal(t, "[1,2,3]", string(frames[0]["delta"]))
}

func TestCursorScenario(t *testing.T) {
	h := newHarness(t)
	u1, u2 := twoInRoom(t, h)

	h.send(u1, `{"type":"cursor-update","documentId":"d1","userId":"u1","cursor":{"position":42}}`)

	frames := u2.frames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, "cursor-update", str(t, frames[0]["type"]))
	assert.Equal(t, "u1", str(t, frames[0]["userId"]))
	assert.JSONEq(t, `{"position":42}`, string(frames[0]["cursor"]))
	assert.Empty(t, u1.frames(t))

	p, err := h.registry.Get("d1", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"position":42}`, string(p.Cursor))
}

func TestSelectionAndTypingUpdateRegistry(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)

	h.send(a, `{"type":"selection-update","selection":{"from":3,"to":9}}`)
	h.send(a, `{"type":"typing-start"}`)

	p, err := h.registry.Get("d1", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":3,"to":9}`, string(p.Selection))
	assert.True(t, p.Typing)

	h.send(a, `{"type":"typing-stop","documentId":"d1"}`)
	p, _ = h.registry.Get("d1", "u1")
	assert.False(t, p.Typing)

	frames := b.frames(t)
	assert.Equal(t, []string{"selection-update", "typing-start", "typing-stop"}, types(t, frames))
	assert.Equal(t, "true", string(frames[1]["typing"]))
	assert.Equal(t, "false", string(frames[2]["typing"]))
}

func TestTypingPersistsUntilStopped(t *testing.T) {
	h := newHarness(t)
	a, _ := twoInRoom(t, h)

	h.send(a, `{"type":"typing-start"}`)
	h.clock.Advance(10 * time.Minute)
	h.send(a, `{"type":"cursor-update","cursor":7}`)

	p, err := h.registry.Get("d1", "u1")
	require.NoError(t, err)
	assert.True(t, p.Typing)
}

func TestCommentsRelayed(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)

	comment := `{"id":"c1","text":"nit: typo","range":[1,4]}`
	h.send(a, `{"type":"comment-added","documentId":"d1","comment":`+comment+`}`)
	h.send(a, `{"type":"comment-resolved","documentId":"d1","commentId":"c1"}`)

	frames := b.frames(t)
	require.Len(t, frames, 2)
	assert.Equal(t, comment, string(frames[0]["comment"]))
	assert.Equal(t, "comment-resolved", str(t, frames[1]["type"]))
	assert.Equal(t, "c1", str(t, frames[1]["commentId"]))
	assert.Empty(t, a.frames(t))
}

type fakeSaver struct {
	calls chan usecase.RequestSaveInput
}

func (f *fakeSaver) Execute(_ context.Context, in usecase.RequestSaveInput) (string, error) {
	f.calls <- in
	return "task-1", nil
}

func TestForceSaveSignalsPeersAndStore(t *testing.T) {
	saver := &fakeSaver{calls: make(chan usecase.RequestSaveInput, 1)}
	h := newHarness(t, WithSaveRequester(saver, time.Second))
	a, b := twoInRoom(t, h)

	h.send(a, `{"type":"force-save","documentId":"d1"}`)

	frames := b.frames(t)
	require.Len(t, frames, 1)
	assert.Equal(t, "save-requested", str(t, frames[0]["type"]))
	assert.Equal(t, "u1", str(t, frames[0]["userId"]))
	assert.Empty(t, a.frames(t))

	select {
	case in := <-saver.calls:
		assert.Equal(t, "d1", in.DocumentID)
		assert.Equal(t, "u1", in.RequestedBy)
		assert.Equal(t, h.clock.Now(), in.RequestedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("save request was not forwarded")
	}
}

func TestProtocolErrorsAreDroppedWithoutClosing(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)
	outsider := h.connect("u3")

	cases := []struct {
		name  string
		from  *fakeSession
		frame string
	}{
		{"malformed json", a, `{"type":`},
		{"missing type", a, `{"documentId":"d1"}`},
		{"unknown type", a, `{"type":"teleport"}`},
		{"edit before join", outsider, `{"type":"edit-delta","documentId":"d1","delta":{}}`},
		{"wrong document", a, `{"type":"edit-delta","documentId":"d2","delta":{}}`},
		{"spoofed user", a, `{"type":"cursor-update","userId":"u2","cursor":1}`},
		{"delta missing", a, `{"type":"edit-delta"}`},
		{"comment id missing", a, `{"type":"comment-resolved"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.send(tc.from, tc.frame)
			closed, _ := tc.from.isClosed()
			assert.False(t, closed)
			assert.Empty(t, b.frames(t))
		})
	}
	assert.ErrorIs(t, h.router.Dispatch(outsider, collab.InboundFrame{Type: collab.EventEditDelta, Delta: json.RawMessage(`1`)}), collab.ErrNotJoined)
}

func TestEveryEventRefreshesLastSeen(t *testing.T) {
	h := newHarness(t)
	a, _ := twoInRoom(t, h)
	joinedAt := h.clock.Now()

	for _, frame := range []string{
		`{"type":"edit-delta","delta":1}`,
		`{"type":"cursor-update","cursor":1}`,
		`{"type":"selection-update","selection":null}`,
		`{"type":"typing-start"}`,
		`{"type":"typing-stop"}`,
		`{"type":"comment-added","comment":{}}`,
		`{"type":"comment-resolved","commentId":"c"}`,
		`{"type":"force-save"}`,
	} {
		h.clock.Advance(time.Minute)
		h.send(a, frame)
		p, err := h.registry.Get("d1", "u1")
		require.NoError(t, err)
		assert.Equal(t, h.clock.Now(), p.LastSeenAt, frame)
	}
	assert.True(t, h.clock.Now().After(joinedAt))
}

func TestRejectedFramesStillRefreshLastSeen(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)

	for _, frame := range []string{
		`{"type":"edit-delta"}`,
		`{"type":"comment-added"}`,
		`{"type":"comment-resolved"}`,
		`{"type":"teleport"}`,
	} {
		h.clock.Advance(time.Minute)
		h.send(a, frame)
		p, err := h.registry.Get("d1", "u1")
		require.NoError(t, err)
		assert.Equal(t, h.clock.Now(), p.LastSeenAt, frame)
	}
	assert.Empty(t, b.frames(t))
}

func TestFailingPeerDoesNotAffectOthers(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)
	slow := h.connect("u3")
	h.join(slow, "d1")
	a.frames(t)
	b.frames(t)

	slow.mu.Lock()
	slow.failSend = true
	slow.mu.Unlock()

	h.send(a, `{"type":"cursor-update","cursor":{"position":3}}`)

	assert.Len(t, b.frames(t), 1)
	p, err := h.registry.Get("d1", "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"position":3}`, string(p.Cursor))
}

func TestEventsFromOneSenderStayOrdered(t *testing.T) {
	h := newHarness(t)
	a, b := twoInRoom(t, h)

	for i := 0; i < 50; i++ {
		h.send(a, `{"type":"edit-delta","delta":`+itoa(i)+`}`)
	}

	frames := b.frames(t)
	require.Len(t, frames, 50)
	for i, f := range frames {
		assert.Equal(t, itoa(i), string(f["delta"]))
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}
