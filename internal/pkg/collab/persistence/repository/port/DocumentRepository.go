package port

import (
	"context"
	"time"
)

// SaveRequest asks the document store to persist a document out-of-band.
type SaveRequest struct {
	DocumentID  string
	RequestedBy string
	RequestedAt time.Time
}

// DocumentRepository is the session layer's narrow view of the external
// document store: it can only ask for saves, never read or write content.
type DocumentRepository interface {
	// RecordSaveRequest upserts the pending save for a document; the newest request wins.
	RecordSaveRequest(ctx context.Context, req SaveRequest) error
}
