package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	qport "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/queue/port"
)

// SaveDocumentTaskType is the queue task name for an out-of-band document save.
const SaveDocumentTaskType = "collab:save_document"

// SaveDocumentQueue is the queue save requests are routed to.
const SaveDocumentQueue = "collab"

// SaveDocumentTaskPayload is the JSON payload transported via the queue.
type SaveDocumentTaskPayload struct {
	DocumentID  string    `json:"documentId"`
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
}

// RequestSaveInput identifies who asked to persist which document.
type RequestSaveInput struct {
	DocumentID  string
	RequestedBy string
	RequestedAt time.Time
}

// RequestSaveUseCase hands a force-save to the document store through the queue.
// The session layer never writes document content itself.
type RequestSaveUseCase struct {
	Queue qport.Client
	// Dedupe collapses repeated force-saves of one document inside this window.
	Dedupe time.Duration
}

func NewRequestSaveUseCase(q qport.Client) *RequestSaveUseCase {
	return &RequestSaveUseCase{Queue: q, Dedupe: 5 * time.Second}
}

// Execute enqueues the save request and returns the task id. A request that
// lands inside the dedupe window of a pending one succeeds with an empty id.
func (uc *RequestSaveUseCase) Execute(ctx context.Context, in RequestSaveInput) (string, error) {
	if in.DocumentID == "" {
		return "", fmt.Errorf("documentId is required")
	}
	if in.RequestedAt.IsZero() {
		in.RequestedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(SaveDocumentTaskPayload{
		DocumentID:  in.DocumentID,
		RequestedBy: in.RequestedBy,
		RequestedAt: in.RequestedAt.UTC(),
	})
	if err != nil {
		return "", err
	}

	id, err := uc.Queue.Enqueue(ctx, qport.Task{Type: SaveDocumentTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:     SaveDocumentQueue,
		MaxRetry:  3,
		UniqueTTL: uc.Dedupe,
	})
	if errors.Is(err, qport.ErrDuplicate) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQueue, err)
	}
	return id, nil
}
