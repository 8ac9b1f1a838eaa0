package entity

import "github.com/google/uuid"

// DisposalSubmittedMessage is the inbound message from the disposal.submitted
// queue, enqueued by the platform API after a video upload.
type DisposalSubmittedMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// KeyframeRef points the classifier at one uploaded frame.
type KeyframeRef struct {
	Role       KeyframeRole       `json:"role"`
	ObjectKey  string             `json:"object_key"`
	FrameIndex int                `json:"frame_index"`
	Quality    FrameQualityReport `json:"quality"`
}

// KeyframesReadyMessage is published to the disposal.keyframes queue for the
// AI classification collaborator. Frames are always in F1..F5 order.
type KeyframesReadyMessage struct {
	JobID              uuid.UUID     `json:"job_id"`
	UserID             string        `json:"user_id"`
	VideoKey           string        `json:"video_key"`
	Frames             []KeyframeRef `json:"frames"`
	BundleKey          string        `json:"bundle_key,omitempty"`
	FPS                float64       `json:"fps"`
	DurationSeconds    float64       `json:"duration_seconds"`
	PeakWindowPosition int           `json:"peak_window_position"`
}

// VerificationStatusMessage is published to the disposal.status queue.
type VerificationStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	BundleKey    string    `json:"bundle_key,omitempty"`
	FramesPassed int       `json:"frames_passed,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
