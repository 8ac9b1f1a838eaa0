package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// VerificationJob tracks one disposal video through keyframe extraction.
type VerificationJob struct {
	ID            uuid.UUID
	UserID        string
	VideoKey      string
	BundleKey     string
	Status        JobStatus
	FileSize      int64
	FPS           float64
	VideoDuration float64
	PeakPosition  int
	FramesPassed  int
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewVerificationJob(userID, videoKey string, fileSize int64, maxAttempts int) *VerificationJob {
	now := time.Now().UTC()
	return &VerificationJob{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *VerificationJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted records the extraction diagnostics alongside the terminal
// status so selection decisions can be audited without re-decoding.
func (j *VerificationJob) MarkCompleted(bundleKey string, set *KeyframeSet) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.BundleKey = bundleKey
	j.FPS = set.FPS
	j.VideoDuration = set.DurationSeconds
	j.PeakPosition = set.PeakWindowPosition
	j.FramesPassed = set.QualityPassedCount()
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *VerificationJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *VerificationJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
