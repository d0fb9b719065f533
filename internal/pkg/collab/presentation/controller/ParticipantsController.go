package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

// ParticipantsController serves the REST presence snapshot of a document.
type ParticipantsController struct {
	listUC *usecase.ListParticipantsUseCase
}

func NewParticipantsController(uc *usecase.ListParticipantsUseCase) *ParticipantsController {
	return &ParticipantsController{listUC: uc}
}

func (ctl *ParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID := c.Param("documentId")
		participants, err := ctl.listUC.Execute(usecase.ListParticipantsInput{DocumentID: documentID})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"documentId":   documentID,
			"participants": participants,
		})
	}
}
