package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cport "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/cache/port"
	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

// PresenceKeyPrefix namespaces mirrored room snapshots in the cache.
const PresenceKeyPrefix = "presence:doc:"

// PresenceSnapshot is the mirrored JSON value for one document room.
type PresenceSnapshot struct {
	DocumentID   string                   `json:"documentId"`
	Participants []collab.ParticipantView `json:"participants"`
	UpdatedAt    int64                    `json:"updatedAt"`
}

// PublishPresenceInput carries the current room state to mirror.
type PublishPresenceInput struct {
	DocumentID   string
	Participants []collab.Participant
	Now          time.Time
}

// PublishPresenceUseCase mirrors a room snapshot into the shared cache so other
// services can show who is editing a document. Empty rooms delete the key.
type PublishPresenceUseCase struct {
	Cache cport.Cache
	TTL   time.Duration
}

func NewPublishPresenceUseCase(c cport.Cache, ttl time.Duration) *PublishPresenceUseCase {
	return &PublishPresenceUseCase{Cache: c, TTL: ttl}
}

func PresenceKey(documentID string) string {
	return PresenceKeyPrefix + documentID
}

func (uc *PublishPresenceUseCase) Execute(ctx context.Context, in PublishPresenceInput) error {
	if in.DocumentID == "" {
		return fmt.Errorf("documentId is required")
	}
	key := PresenceKey(in.DocumentID)

	if len(in.Participants) == 0 {
		if _, err := uc.Cache.Del(ctx, key); err != nil {
			return fmt.Errorf("%w: %v", ErrCache, err)
		}
		return nil
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	snap := PresenceSnapshot{DocumentID: in.DocumentID, UpdatedAt: now.UnixMilli()}
	for _, p := range in.Participants {
		snap.Participants = append(snap.Participants, p.View())
	}
	value, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := uc.Cache.Set(ctx, key, string(value), uc.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrCache, err)
	}
	return nil
}
