package vision

import (
	"context"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// decodedVideo owns the materialized analysis-window frames of a single
// pipeline invocation. close must be called on every exit path.
type decodedVideo struct {
	frames          []gocv.Mat
	fps             float64
	totalFrames     int
	durationSeconds float64
	windowStart     int
}

func (d *decodedVideo) close() {
	closeMats(d.frames)
	d.frames = nil
}

func closeMats(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}

// ingest decodes a raw video buffer and materializes only the frames inside
// the analysis window, which bounds memory to the window rather than the
// whole video. The decoder needs file-based access, so the buffer is staged
// in a scratch file that is removed before returning.
func ingest(ctx context.Context, video []byte, cfg Config) (*decodedVideo, error) {
	if len(video) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrVideoOpen)
	}

	scratch, err := os.CreateTemp("", "ecodrop-video-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())

	if _, err := scratch.Write(video); err != nil {
		scratch.Close()
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return nil, fmt.Errorf("close scratch file: %w", err)
	}

	capture, err := gocv.OpenVideoCapture(scratch.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoOpen, err)
	}
	defer capture.Close()
	if !capture.IsOpened() {
		return nil, fmt.Errorf("%w: decoder rejected stream", ErrVideoOpen)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	totalFrames := int(capture.Get(gocv.VideoCaptureFrameCount))

	var durationSeconds float64
	if fps > 0 {
		durationSeconds = float64(totalFrames) / fps
	} else {
		// Some containers omit the frame rate; assume a nominal clip length
		// and derive fps from it.
		durationSeconds = cfg.NominalDurationSeconds
		fps = float64(totalFrames) / durationSeconds
	}

	if durationSeconds < cfg.MinDurationSeconds {
		return nil, fmt.Errorf("%w: %.2fs, minimum is %.2fs",
			ErrVideoTooShort, durationSeconds, cfg.MinDurationSeconds)
	}

	windowStart := int(cfg.LeadMarginSeconds * fps)
	windowEnd := totalFrames - int(cfg.TailMarginSeconds*fps)
	if windowEnd > totalFrames {
		windowEnd = totalFrames
	}

	frames := make([]gocv.Mat, 0, max(windowEnd-windowStart, 0))
	buf := gocv.NewMat()
	defer buf.Close()

	for idx := 0; idx < windowEnd; idx++ {
		select {
		case <-ctx.Done():
			closeMats(frames)
			return nil, fmt.Errorf("decode cancelled: %w", ctx.Err())
		default:
		}

		if ok := capture.Read(&buf); !ok {
			// Decoder reported more frames than it can actually deliver.
			break
		}
		if buf.Empty() {
			continue
		}
		if idx >= windowStart {
			frames = append(frames, buf.Clone())
		}
	}

	if len(frames) < cfg.MinWindowFrames {
		closeMats(frames)
		return nil, fmt.Errorf("%w: %d usable frames, need %d",
			ErrInsufficientFrames, len(frames), cfg.MinWindowFrames)
	}

	return &decodedVideo{
		frames:          frames,
		fps:             fps,
		totalFrames:     totalFrames,
		durationSeconds: durationSeconds,
		windowStart:     windowStart,
	}, nil
}
