package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// MotionScore is the combined change measurement for one interior window
// position. PixelDelta reacts to raw lighting/intensity motion; EdgeDelta is
// computed over Canny edge maps and is more robust to uniform lighting shifts
// such as passing shadows.
type MotionScore struct {
	WindowPosition int
	PixelDelta     float64
	EdgeDelta      float64
	Combined       float64
}

// motionScores produces one score per interior window position, using the
// immediate neighbors on both sides. The first and last window frames lack a
// neighbor and are not scored.
func motionScores(ctx context.Context, frames []gocv.Mat, cfg Config) ([]MotionScore, error) {
	edges := make([]gocv.Mat, len(frames))
	defer closeMats(edges)

	gray := gocv.NewMat()
	defer gray.Close()

	for i := range frames {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("motion scoring cancelled: %w", ctx.Err())
		default:
		}
		gocv.CvtColor(frames[i], &gray, gocv.ColorBGRToGray)
		edges[i] = gocv.NewMat()
		gocv.Canny(gray, &edges[i], cfg.CannyLowThreshold, cfg.CannyHighThreshold)
	}

	diff := gocv.NewMat()
	defer diff.Close()

	scores := make([]MotionScore, 0, max(len(frames)-2, 0))
	for i := 1; i <= len(frames)-2; i++ {
		pixelDelta := absDiffSum(frames[i-1], frames[i], &diff) +
			absDiffSum(frames[i], frames[i+1], &diff)
		edgeDelta := absDiffSum(edges[i-1], edges[i], &diff) +
			absDiffSum(edges[i], edges[i+1], &diff)

		scores = append(scores, MotionScore{
			WindowPosition: i,
			PixelDelta:     pixelDelta,
			EdgeDelta:      edgeDelta,
			Combined:       pixelDelta + edgeDelta,
		})
	}
	return scores, nil
}

// absDiffSum sums |a-b| over all pixels and channels. scratch is reused
// across calls to avoid a Mat allocation per pair.
func absDiffSum(a, b gocv.Mat, scratch *gocv.Mat) float64 {
	gocv.AbsDiff(a, b, scratch)
	s := scratch.Sum()
	return s.Val1 + s.Val2 + s.Val3 + s.Val4
}

// peakScore locates the maximum combined score, interpreted as the disposal
// action instant. Ties break toward the lowest window position so repeated
// runs over the same input stay reproducible.
func peakScore(scores []MotionScore) MotionScore {
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Combined > best.Combined {
			best = s
		}
	}
	return best
}
