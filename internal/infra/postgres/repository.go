package postgres

import (
	"context"
	"fmt"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.VerificationJob) error {
	query := `
		INSERT INTO verification_jobs (
			id, user_id, video_key, bundle_key, status, file_size,
			fps, video_duration, peak_position, frames_passed,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.BundleKey, string(job.Status),
		job.FileSize, job.FPS, job.VideoDuration, job.PeakPosition, job.FramesPassed,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.VerificationJob) error {
	query := `
		UPDATE verification_jobs SET
			status=$2, bundle_key=$3, fps=$4, video_duration=$5,
			peak_position=$6, frames_passed=$7, attempt=$8,
			error_message=$9, updated_at=$10, completed_at=$11
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.BundleKey, job.FPS, job.VideoDuration,
		job.PeakPosition, job.FramesPassed, job.Attempt,
		job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.VerificationJob, error) {
	query := `
		SELECT id, user_id, video_key, bundle_key, status, file_size,
			fps, video_duration, peak_position, frames_passed,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM verification_jobs WHERE id=$1`

	job := &entity.VerificationJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.BundleKey, &status,
		&job.FileSize, &job.FPS, &job.VideoDuration, &job.PeakPosition, &job.FramesPassed,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
