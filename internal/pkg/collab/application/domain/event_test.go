package collab

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"join","documentId":"d1","userId":"u1","displayName":"Ada","avatarGlyph":"A","avatarColor":"#f00"}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoin, f.Type)
	assert.Equal(t, Identity{UserID: "u1", DisplayName: "Ada", AvatarGlyph: "A", AvatarColor: "#f00"}, f.ClaimedIdentity())

	_, err = DecodeFrame([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = DecodeFrame([]byte(`{"documentId":"d1"}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParticipantView(t *testing.T) {
	p := NewParticipant(Identity{UserID: "u1", DisplayName: "Ada"}, "c1", time.UnixMilli(1700000000000))
	v := p.View()
	assert.Equal(t, json.RawMessage("null"), v.Cursor)
	assert.Equal(t, json.RawMessage("null"), v.Selection)
	assert.Equal(t, int64(1700000000000), v.LastSeenAt)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","displayName":"Ada","avatarGlyph":"","avatarColor":"","cursor":null,"selection":null,"typing":false,"lastSeenAt":1700000000000}`, string(out))
}
