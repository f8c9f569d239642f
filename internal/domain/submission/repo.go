package submission

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("submission not found")

type Repository interface {
	Create(ctx context.Context, s *Submission) error
	// CreateBatch stores every submission or none of them.
	CreateBatch(ctx context.Context, subs []*Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	List(ctx context.Context, limit, offset int) ([]*Submission, int, error)
}
