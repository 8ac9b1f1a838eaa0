// Package vision implements the adaptive keyframe extraction pipeline: it
// decodes a short disposal video, localizes the action instant by temporal
// motion scoring, selects five frames with fixed semantic roles and validates
// each against sharpness/brightness thresholds with a bounded local search
// for substitutes.
package vision

import (
	"context"
	"fmt"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Pipeline is a pure transformation from video bytes to a keyframe set.
// Invocations share no mutable state, so one Pipeline can serve concurrent
// workers.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Extract runs the full pipeline. Fatal errors wrap ErrVideoOpen,
// ErrVideoTooShort or ErrInsufficientFrames; quality degradation is reported
// only through the per-frame reports, never as an error.
func (p *Pipeline) Extract(ctx context.Context, video []byte) (*entity.KeyframeSet, error) {
	decoded, err := ingest(ctx, video, p.cfg)
	if err != nil {
		return nil, err
	}
	defer decoded.close()

	scores, err := motionScores(ctx, decoded.frames, p.cfg)
	if err != nil {
		return nil, err
	}
	peak := peakScore(scores)

	targets := selectTargets(len(decoded.frames), peak.WindowPosition, decoded.fps, p.cfg)
	selected := validateFrames(decoded.frames, targets, decoded.fps, p.cfg)

	frames := make([]entity.Keyframe, 0, len(selected))
	for _, s := range selected {
		jpeg, err := encodeJPEG(decoded.frames[s.WindowPosition], p.cfg.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encode %s frame: %w", s.Target.Role, err)
		}
		frames = append(frames, entity.Keyframe{
			Role:           s.Target.Role,
			WindowPosition: s.WindowPosition,
			FrameIndex:     decoded.windowStart + s.WindowPosition,
			JPEG:           jpeg,
			Quality:        s.Report,
		})
	}

	set := &entity.KeyframeSet{
		Frames:             frames,
		FPS:                decoded.fps,
		DurationSeconds:    decoded.durationSeconds,
		TotalFrames:        decoded.totalFrames,
		WindowStart:        decoded.windowStart,
		WindowLength:       len(decoded.frames),
		PeakWindowPosition: peak.WindowPosition,
		PeakScore:          peak.Combined,
	}

	p.logger.Debug("keyframes extracted",
		zap.Float64("fps", set.FPS),
		zap.Float64("duration_seconds", set.DurationSeconds),
		zap.Int("window_length", set.WindowLength),
		zap.Int("peak_window_position", set.PeakWindowPosition),
		zap.Float64("peak_score", set.PeakScore),
		zap.Int("frames_passed", set.QualityPassedCount()),
	)

	return set, nil
}

func encodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame,
		[]int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// Copy out: the native buffer is freed on Close.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
