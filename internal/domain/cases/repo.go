package cases

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the case's current status.
	ErrInvalidTransition = errors.New("invalid case status for this operation")
)

type CaseRepository interface {
	Create(ctx context.Context, cs *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetRecord(ctx context.Context, id uuid.UUID, recordID uuid.UUID) error
	// CountByNumberPrefix supports sequential case numbering within a
	// period.
	CountByNumberPrefix(ctx context.Context, prefix string) (int, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, a *NursingAssessment) error
	GetByCase(ctx context.Context, caseID uuid.UUID) (*NursingAssessment, error)
}

type ConclusionRepository interface {
	Create(ctx context.Context, c *DoctorConclusion) error
	GetByCase(ctx context.Context, caseID uuid.UUID) (*DoctorConclusion, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error)
}
