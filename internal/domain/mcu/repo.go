package mcu

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record, batch or history entry does not
// exist.
var ErrNotFound = errors.New("not found")

// ListFilter narrows record listings.
type ListFilter struct {
	// Search matches employee name or NPK, case-insensitively.
	Search string
	// BatchID restricts to records from one upload batch.
	BatchID *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Record, int, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

type BatchRepository interface {
	Create(ctx context.Context, b *UploadBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*UploadBatch, error)
	List(ctx context.Context, limit, offset int) ([]*UploadBatch, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type HistoryRepository interface {
	Create(ctx context.Context, h *ReportHistory) error
	List(ctx context.Context, limit, offset int) ([]*ReportHistory, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
