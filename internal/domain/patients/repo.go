package patients

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	// Upsert inserts the patient or, when the medical record number already
	// exists, updates the stored entry in place.
	Upsert(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNoRM(ctx context.Context, noRM string) (*Patient, error)
	List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
}
