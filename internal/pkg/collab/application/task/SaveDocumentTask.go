package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/queue/port"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
	repository "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/persistence/repository/port"
)

// ErrMalformedPayload marks a task that can never succeed.
var ErrMalformedPayload = fmt.Errorf("task: malformed save_document payload: %w", qport.ErrSkipRetry)

// RegisterSaveDocumentTask binds the save_document handler to srv.
func RegisterSaveDocumentTask(srv qport.Server, repo repository.DocumentRepository) {
	srv.Register(usecase.SaveDocumentTaskType, SaveDocumentHandler(repo))
}

// SaveDocumentHandler records the save request with the document store.
func SaveDocumentHandler(repo repository.DocumentRepository) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p usecase.SaveDocumentTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if p.DocumentID == "" {
			return fmt.Errorf("%w: missing documentId", ErrMalformedPayload)
		}
		if p.RequestedAt.IsZero() {
			p.RequestedAt = time.Now().UTC()
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return repo.RecordSaveRequest(ctx, repository.SaveRequest{
			DocumentID:  p.DocumentID,
			RequestedBy: p.RequestedBy,
			RequestedAt: p.RequestedAt,
		})
	}
}
