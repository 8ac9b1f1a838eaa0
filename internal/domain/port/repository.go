package port

import (
	"context"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.VerificationJob) error
	Update(ctx context.Context, job *entity.VerificationJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.VerificationJob, error)
}
