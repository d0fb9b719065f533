package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/session"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/presentation/controller"
)

// Dependencies groups what the collab routes need.
type Dependencies struct {
	Gateway *session.Gateway
	Router  *session.Router
	Socket  controller.SocketOptions
	Logger  *slog.Logger
}

// RegisterRoutes registers collaborative-session endpoints under the given router group.
func RegisterRoutes(g *gin.RouterGroup, deps Dependencies) {
	socketCtl := controller.NewCollabSocketController(deps.Gateway, deps.Router, deps.Socket, deps.Logger)
	participantsCtl := controller.NewParticipantsController(usecase.NewListParticipantsUseCase(deps.Gateway.Registry()))

	// GET /api/v1/collab/ws -> websocket endpoint for realtime sessions
	g.GET("/collab/ws", socketCtl.Handle())

	// GET /api/v1/documents/:documentId/participants -> live presence snapshot
	g.GET("/documents/:documentId/participants", participantsCtl.Handle())
}
