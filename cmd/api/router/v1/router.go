package v1

import (
	"github.com/gin-gonic/gin"

	collabHTTP "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, deps collabHTTP.Dependencies) {
	v1 := r.Group("/api/v1")
	collabHTTP.RegisterRoutes(v1, deps)
}
