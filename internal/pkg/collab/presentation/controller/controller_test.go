package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

func TestIdentityFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/collab/ws?userId=q-user&displayName=Query&avatarColor=%23fff", nil)
	r.Header.Set(HeaderUserID, "h-user")
	r.Header.Set(HeaderAvatarGlyph, "H")

	id := IdentityFromRequest(r)
	assert.Equal(t, collab.Identity{
		UserID:      "h-user",
		DisplayName: "Query",
		AvatarGlyph: "H",
		AvatarColor: "#fff",
	}, id)

	anon := IdentityFromRequest(httptest.NewRequest(http.MethodGet, "/collab/ws", nil))
	assert.False(t, anon.Valid())
}

func TestNewCollabSocketControllerDefaults(t *testing.T) {
	ctl := NewCollabSocketController(nil, nil, SocketOptions{ReadTimeout: 10 * time.Second, PingPeriod: time.Minute}, nil)
	assert.Equal(t, 9*time.Second, ctl.opts.PingPeriod)
	assert.Equal(t, int64(1<<20), ctl.opts.MaxMessageBytes)
	assert.NotNil(t, ctl.logger)
}

func TestParticipantsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := collab.NewRegistry()
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	reg.Register("d1", collab.NewParticipant(collab.Identity{UserID: "u1", DisplayName: "Ada"}, "c1", at))

	r := gin.New()
	r.GET("/documents/:documentId/participants", NewParticipantsController(usecase.NewListParticipantsUseCase(reg)).Handle())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/d1/participants", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		DocumentID   string                   `json:"documentId"`
		Participants []collab.ParticipantView `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "d1", body.DocumentID)
	require.Len(t, body.Participants, 1)
	assert.Equal(t, "Ada", body.Participants[0].DisplayName)
	assert.Equal(t, at.UnixMilli(), body.Participants[0].LastSeenAt)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/none/participants", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documentId":"none","participants":[]}`, w.Body.String())
}
