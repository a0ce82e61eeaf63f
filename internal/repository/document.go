// Package repository implements Postgres persistence for document metadata.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sailor-labs/sailor/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can
// run inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, user_id, course_id, filename, file_hash, file_size, total_pages, storage_key, status, chunk_count, failed_batches, error_message, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.UserID, nullableString(d.CourseID), d.Filename, d.FileHash, d.FileSize, d.TotalPages,
		d.StorageKey, d.Status, d.ChunkCount, d.FailedBatches, nullableString(d.ErrorMessage),
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	return scanDocument(row)
}

// GetByHash finds a user's document with identical file content, used for
// duplicate rejection before any processing starts.
func (r *DocumentRepository) GetByHash(ctx context.Context, userID, fileHash string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1 AND file_hash = $2`,
		userID, fileHash,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, total_pages = $2, chunk_count = $3, failed_batches = $4, error_message = $5, updated_at = $6
		 WHERE id = $7`,
		d.Status, d.TotalPages, d.ChunkCount, d.FailedBatches, nullableString(d.ErrorMessage), d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// ListPending returns queued documents oldest first, for the ingest worker.
func (r *DocumentRepository) ListPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		domain.DocumentStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (r *DocumentRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var courseID, errorMessage *string
	err := row.Scan(&d.ID, &d.UserID, &courseID, &d.Filename, &d.FileHash, &d.FileSize, &d.TotalPages,
		&d.StorageKey, &d.Status, &d.ChunkCount, &d.FailedBatches, &errorMessage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if courseID != nil {
		d.CourseID = *courseID
	}
	if errorMessage != nil {
		d.ErrorMessage = *errorMessage
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var courseID, errorMessage *string
		if err := rows.Scan(&d.ID, &d.UserID, &courseID, &d.Filename, &d.FileHash, &d.FileSize, &d.TotalPages,
			&d.StorageKey, &d.Status, &d.ChunkCount, &d.FailedBatches, &errorMessage, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if courseID != nil {
			d.CourseID = *courseID
		}
		if errorMessage != nil {
			d.ErrorMessage = *errorMessage
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
