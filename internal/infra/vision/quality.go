package vision

import (
	"math"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"gocv.io/x/gocv"
)

// selectedFrame is a role target after quality validation. WindowPosition may
// differ from the target's when a sharper/better-exposed substitute was found
// nearby.
type selectedFrame struct {
	Target         RoleTarget
	WindowPosition int
	Report         entity.FrameQualityReport
}

// measureQuality computes the focus and exposure proxies for one frame:
// sharpness as the variance of the Laplacian of the grayscale conversion,
// brightness as its mean intensity.
func measureQuality(frame gocv.Mat) (sharpness, brightness float64) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(lap, &mean, &stdDev)

	sd := stdDev.GetDoubleAt(0, 0)
	return sd * sd, gray.Mean().Val1
}

func (cfg Config) qualityPassed(sharpness, brightness float64) bool {
	return sharpness >= cfg.MinSharpness &&
		brightness >= cfg.MinBrightness &&
		brightness <= cfg.MaxBrightness
}

// validateFrames checks each target against the quality thresholds. A failing
// target triggers a bounded local search for the best passing substitute,
// scored by sharpness+brightness. When nothing in the radius passes, the
// original frame is kept as a best-effort fallback with Passed=false; quality
// degradation never fails the pipeline, since some real disposal scenes are
// legitimately dim or low-texture.
func validateFrames(frames []gocv.Mat, targets []RoleTarget, fps float64, cfg Config) []selectedFrame {
	radius := int(math.Round(cfg.SearchRadiusSeconds * fps))

	out := make([]selectedFrame, 0, len(targets))
	for _, t := range targets {
		sharpness, brightness := measureQuality(frames[t.WindowPosition])
		if cfg.qualityPassed(sharpness, brightness) {
			out = append(out, selectedFrame{
				Target:         t,
				WindowPosition: t.WindowPosition,
				Report: entity.FrameQualityReport{
					Sharpness:  sharpness,
					Brightness: brightness,
					Passed:     true,
				},
			})
			continue
		}

		bestPos := -1
		var bestSharp, bestBright float64
		bestScore := math.Inf(-1)
		for pos := t.WindowPosition - radius; pos <= t.WindowPosition+radius; pos++ {
			if pos < 0 || pos >= len(frames) || pos == t.WindowPosition {
				continue
			}
			candSharp, candBright := measureQuality(frames[pos])
			if !cfg.qualityPassed(candSharp, candBright) {
				continue
			}
			if score := candSharp + candBright; score > bestScore {
				bestScore = score
				bestPos = pos
				bestSharp = candSharp
				bestBright = candBright
			}
		}

		if bestPos >= 0 {
			out = append(out, selectedFrame{
				Target:         t,
				WindowPosition: bestPos,
				Report: entity.FrameQualityReport{
					Sharpness:  bestSharp,
					Brightness: bestBright,
					Passed:     true,
				},
			})
			continue
		}

		out = append(out, selectedFrame{
			Target:         t,
			WindowPosition: t.WindowPosition,
			Report: entity.FrameQualityReport{
				Sharpness:  sharpness,
				Brightness: brightness,
				Passed:     false,
			},
		})
	}
	return out
}
