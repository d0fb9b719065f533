package usecase

import (
	"fmt"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

// ListParticipantsInput wraps the document identifier to fetch its live participants.
type ListParticipantsInput struct {
	DocumentID string
}

// ListParticipantsUseCase returns the live participants of a document room in join order.
type ListParticipantsUseCase struct {
	Registry *collab.Registry
}

func NewListParticipantsUseCase(registry *collab.Registry) *ListParticipantsUseCase {
	return &ListParticipantsUseCase{Registry: registry}
}

func (uc *ListParticipantsUseCase) Execute(in ListParticipantsInput) ([]collab.ParticipantView, error) {
	if in.DocumentID == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	participants := uc.Registry.List(in.DocumentID)
	views := make([]collab.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, p.View())
	}
	return views, nil
}
