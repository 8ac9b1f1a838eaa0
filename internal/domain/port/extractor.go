package port

import (
	"context"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
)

// KeyframeExtractor turns a raw video byte buffer into exactly five
// quality-annotated keyframes.
type KeyframeExtractor interface {
	Extract(ctx context.Context, video []byte) (*entity.KeyframeSet, error)
}
