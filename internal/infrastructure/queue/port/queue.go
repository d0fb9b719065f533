package port

import (
	"context"
	"errors"
	"time"
)

// ErrSkipRetry, when wrapped by a handler error, marks the task as permanently failed.
var ErrSkipRetry = errors.New("queue: skip retry")

// ErrDuplicate is returned by Enqueue when an equivalent task is still inside
// its UniqueTTL window. The earlier task will run; nothing was lost.
var ErrDuplicate = errors.New("queue: duplicate task")

// Task is a background job: a stable type name plus an opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error asks the adapter to retry.
// Handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption maps onto whatever the backend supports; zero values are unset.
type EnqueueOption struct {
	Queue     string
	ProcessIn time.Duration
	ProcessAt time.Time // wins over ProcessIn
	MaxRetry  int
	UniqueTTL time.Duration
	Retention time.Duration
	Deadline  time.Time
}

// Client enqueues tasks.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs handlers until Stop is called or the Run context ends.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
