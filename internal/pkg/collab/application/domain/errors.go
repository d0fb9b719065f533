package collab

import "errors"

// Domain-level errors for collaborative sessions
var (
	ErrParticipantNotFound = errors.New("collab: participant not found in document room")
	ErrMissingIdentity     = errors.New("collab: connection has no identity")
	ErrIdentityMismatch    = errors.New("collab: event user does not match connection identity")
	ErrMissingDocument     = errors.New("collab: document id is required")
	ErrNotJoined           = errors.New("collab: connection is not bound to a document")
	ErrDocumentMismatch    = errors.New("collab: event targets a document the connection is not bound to")
	ErrUnknownEvent        = errors.New("collab: unknown event type")
	ErrMalformedFrame      = errors.New("collab: malformed frame")
)
