package port

import "context"

// ResultPublisher hands the finished keyframe set off to the classification
// collaborator.
type ResultPublisher interface {
	PublishKeyframesReady(ctx context.Context, msg []byte) error
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
