package vision

import "errors"

// Fatal pipeline errors. Callers dispatch with errors.Is; everything else
// coming out of Extract is an infrastructure failure (scratch file, encode)
// and may be retried.
var (
	// ErrVideoOpen means the byte buffer is not a decodable video container.
	// Retrying the same upload will not help.
	ErrVideoOpen = errors.New("video could not be opened")

	// ErrVideoTooShort means the decoded duration is under the minimum.
	ErrVideoTooShort = errors.New("video too short")

	// ErrInsufficientFrames means fewer usable frames fell inside the
	// analysis window than the pipeline needs.
	ErrInsufficientFrames = errors.New("insufficient frames in analysis window")
)
