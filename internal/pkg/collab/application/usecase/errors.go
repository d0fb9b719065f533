package usecase

import "errors"

var (
	// ErrQueue indicates the save request could not be handed to the queue
	ErrQueue = errors.New("collab use case queue error")
	// ErrCache indicates a presence mirror write failed
	ErrCache = errors.New("collab use case cache error")
)
