package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	repository "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/persistence/repository/port"
)

// PgDocumentRepository records save requests in the document store's schema.
// The store's autosave loop drains document.save_request.
type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

var _ repository.DocumentRepository = (*PgDocumentRepository)(nil)

func (r *PgDocumentRepository) RecordSaveRequest(ctx context.Context, req repository.SaveRequest) error {
	if r == nil || r.pool == nil {
		return errors.New("PgDocumentRepository: nil pool")
	}
	if req.DocumentID == "" {
		return errors.New("PgDocumentRepository: document id is required")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document.save_request (document_id, requested_by, requested_at)
		VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (document_id)
		DO UPDATE SET requested_by = EXCLUDED.requested_by,
		              requested_at = EXCLUDED.requested_at
		WHERE document.save_request.requested_at <= EXCLUDED.requested_at
	`, req.DocumentID, req.RequestedBy, req.RequestedAt)
	return err
}
