package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/realtime"
	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/session"
)

// Headers the upstream identity provider sets on the upgrade request.
const (
	HeaderUserID      = "X-User-Id"
	HeaderDisplayName = "X-Display-Name"
	HeaderAvatarGlyph = "X-Avatar-Glyph"
	HeaderAvatarColor = "X-Avatar-Color"
)

// SocketOptions tunes every websocket connection the controller accepts.
type SocketOptions struct {
	SendBuffer      int
	SendTimeout     time.Duration
	WriteWait       time.Duration
	ReadTimeout     time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
}

// CollabSocketController handles the websocket endpoint for collaborative sessions.
type CollabSocketController struct {
	gateway *session.Gateway
	router  *session.Router
	opts    SocketOptions
	logger  *slog.Logger
}

func NewCollabSocketController(gateway *session.Gateway, router *session.Router, opts SocketOptions, logger *slog.Logger) *CollabSocketController {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.ReadTimeout {
		opts.PingPeriod = opts.ReadTimeout * 9 / 10
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 1 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CollabSocketController{gateway: gateway, router: router, opts: opts, logger: logger}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks belong to the fronting identity proxy.
		return true
	},
}

// IdentityFromRequest reads the trusted identity from headers, falling back to query params.
func IdentityFromRequest(r *http.Request) collab.Identity {
	pick := func(header, query string) string {
		if v := r.Header.Get(header); v != "" {
			return v
		}
		return r.URL.Query().Get(query)
	}
	return collab.Identity{
		UserID:      pick(HeaderUserID, "userId"),
		DisplayName: pick(HeaderDisplayName, "displayName"),
		AvatarGlyph: pick(HeaderAvatarGlyph, "avatarGlyph"),
		AvatarColor: pick(HeaderAvatarColor, "avatarColor"),
	}
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *CollabSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFromRequest(c.Request)

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.logger.Debug("websocket upgrade failed", "error", err)
			return
		}

		conn := realtime.NewConnection(ws, realtime.Options{
			SendBuffer:  ctl.opts.SendBuffer,
			SendTimeout: ctl.opts.SendTimeout,
			WriteWait:   ctl.opts.WriteWait,
			PingPeriod:  ctl.opts.PingPeriod,
		})
		conn.Start()
		ctl.gateway.OnConnect(conn, identity)
		defer func() {
			ctl.gateway.OnDisconnect(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(ctl.opts.MaxMessageBytes)
		_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(ctl.opts.ReadTimeout))
		})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					ctl.logger.Debug("websocket read ended", "conn", conn.ID(), "error", err)
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(ctl.opts.ReadTimeout))
			ctl.router.Handle(conn, data)
		}
	}
}
