package port

import (
	"context"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
)

// Bundler packs a keyframe set into a single archive for audit and manual
// review.
type Bundler interface {
	CreateBundle(ctx context.Context, set *entity.KeyframeSet, outputPath string) error
}
