package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
)

// Bundler packs the five keyframes plus a manifest of the selection
// diagnostics into one zip, kept alongside the individual frames for audit
// and manual review.
type Bundler struct{}

func NewBundler() *Bundler {
	return &Bundler{}
}

type manifest struct {
	FPS                float64         `json:"fps"`
	DurationSeconds    float64         `json:"duration_seconds"`
	TotalFrames        int             `json:"total_frames"`
	WindowStart        int             `json:"window_start"`
	WindowLength       int             `json:"window_length"`
	PeakWindowPosition int             `json:"peak_window_position"`
	PeakScore          float64         `json:"peak_score"`
	Frames             []manifestFrame `json:"frames"`
}

type manifestFrame struct {
	Role       entity.KeyframeRole       `json:"role"`
	FrameIndex int                       `json:"frame_index"`
	Quality    entity.FrameQualityReport `json:"quality"`
}

func (b *Bundler) CreateBundle(ctx context.Context, set *entity.KeyframeSet, outputPath string) error {
	bundle, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	defer bundle.Close()

	zw := zip.NewWriter(bundle)
	defer zw.Close()

	now := time.Now().UTC()
	for _, frame := range set.Frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     fmt.Sprintf("%s.jpg", frame.Role),
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("add %s to bundle: %w", frame.Role, err)
		}
		if _, err := w.Write(frame.JPEG); err != nil {
			return fmt.Errorf("write %s to bundle: %w", frame.Role, err)
		}
	}

	m := manifest{
		FPS:                set.FPS,
		DurationSeconds:    set.DurationSeconds,
		TotalFrames:        set.TotalFrames,
		WindowStart:        set.WindowStart,
		WindowLength:       set.WindowLength,
		PeakWindowPosition: set.PeakWindowPosition,
		PeakScore:          set.PeakScore,
	}
	for _, frame := range set.Frames {
		m.Frames = append(m.Frames, manifestFrame{
			Role:       frame.Role,
			FrameIndex: frame.FrameIndex,
			Quality:    frame.Quality,
		})
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     "manifest.json",
		Method:   zip.Deflate,
		Modified: now,
	})
	if err != nil {
		return fmt.Errorf("add manifest to bundle: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
