package session

import (
	"context"
	"time"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
)

// PresencePublisher writes a room snapshot somewhere other services can read it.
type PresencePublisher interface {
	Execute(ctx context.Context, in usecase.PublishPresenceInput) error
}

// PresenceMirror publishes room snapshots from a single goroutine. Notify only
// queues the document id; the snapshot is read from the registry when the
// worker gets to it, so the latest state always wins.
type PresenceMirror struct {
	registry  *collab.Registry
	publisher PresencePublisher
	pending   chan string
	timeout   time.Duration
	opts      options
}

// NewPresenceMirror constructs a mirror with a queue of the given size.
func NewPresenceMirror(registry *collab.Registry, publisher PresencePublisher, queue int, opts ...Option) *PresenceMirror {
	if queue <= 0 {
		queue = 256
	}
	return &PresenceMirror{
		registry:  registry,
		publisher: publisher,
		pending:   make(chan string, queue),
		timeout:   3 * time.Second,
		opts:      buildOptions(opts),
	}
}

var _ Notifier = (*PresenceMirror)(nil)

// Notify queues documentID for publishing. It never blocks; when the queue is
// full the update is dropped and the next change republishes the room.
func (m *PresenceMirror) Notify(documentID string) {
	select {
	case m.pending <- documentID:
	default:
		m.opts.logger.Warn("presence mirror queue full", "document", documentID)
	}
}

// Run publishes queued rooms until ctx is done.
func (m *PresenceMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case documentID := <-m.pending:
			m.publish(ctx, documentID)
		}
	}
}

func (m *PresenceMirror) publish(ctx context.Context, documentID string) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.publisher.Execute(ctx, usecase.PublishPresenceInput{
		DocumentID:   documentID,
		Participants: m.registry.List(documentID),
		Now:          m.opts.now(),
	})
	if err != nil {
		m.opts.logger.Warn("presence mirror publish failed", "document", documentID, "error", err)
	}
}
