package vision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"
)

// writeClip encodes frames as an MJPG avi and returns the file contents.
func writeClip(t *testing.T, fps float64, frames []gocv.Mat) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.avi")
	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, frames[0].Cols(), frames[0].Rows(), true)
	require.NoError(t, err)
	require.True(t, writer.IsOpened(), "MJPG writer unavailable")

	for _, frame := range frames {
		require.NoError(t, writer.Write(frame))
	}
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// actionClip builds a 3s clip at the given fps: mostly static with a
// high-contrast change injected at flashIndex.
func actionClip(t *testing.T, fps float64, totalFrames, flashIndex int) []byte {
	t.Helper()

	flash := checkerFrame(t, 64)
	defer flash.Close()
	still := flatFrame(100, 64)
	defer still.Close()

	frames := make([]gocv.Mat, totalFrames)
	for i := range frames {
		if i == flashIndex {
			frames[i] = flash
		} else {
			frames[i] = still
		}
	}
	// frames alias the two mats above; nothing extra to close.
	return writeClip(t, fps, frames)
}

func TestExtractRejectsUndecodableInput(t *testing.T) {
	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))

	_, err := p.Extract(context.Background(), []byte{})
	assert.ErrorIs(t, err, ErrVideoOpen)

	_, err = p.Extract(context.Background(), []byte("definitely not an mp4"))
	assert.ErrorIs(t, err, ErrVideoOpen)
}

func TestExtractRejectsShortVideo(t *testing.T) {
	still := flatFrame(100, 64)
	defer still.Close()
	frames := make([]gocv.Mat, 30) // 1s at 30fps
	for i := range frames {
		frames[i] = still
	}
	clip := writeClip(t, 30, frames)

	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))
	_, err := p.Extract(context.Background(), clip)
	assert.ErrorIs(t, err, ErrVideoTooShort)
}

func TestExtractSelectsPeakAtAction(t *testing.T) {
	// 3s at 30fps, injected change at t=1.5s (frame 45).
	clip := actionClip(t, 30, 90, 45)

	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))
	set, err := p.Extract(context.Background(), clip)
	require.NoError(t, err)

	require.Len(t, set.Frames, 5)
	roles := entity.KeyframeRoles()
	for i, frame := range set.Frames {
		assert.Equal(t, roles[i], frame.Role)
		assert.NotEmpty(t, frame.JPEG)
	}

	action := set.Frames[2]
	assert.Equal(t, entity.RoleAction, action.Role)
	assert.InDelta(t, 45, action.FrameIndex, 1, "action frame must land at or adjacent to the injected change")
	assert.Equal(t, set.WindowStart+set.PeakWindowPosition, action.FrameIndex)
	assert.Greater(t, set.PeakScore, 0.0)

	assert.InDelta(t, 30.0, set.FPS, 0.5)
	assert.InDelta(t, 3.0, set.DurationSeconds, 0.2)
}

func TestExtractStaticVideoStillReturnsFiveFrames(t *testing.T) {
	still := flatFrame(100, 64)
	defer still.Close()
	frames := make([]gocv.Mat, 90) // 3s at 30fps, no motion at all
	for i := range frames {
		frames[i] = still
	}
	clip := writeClip(t, 30, frames)

	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))
	set, err := p.Extract(context.Background(), clip)
	require.NoError(t, err)
	require.Len(t, set.Frames, 5)
}

func TestExtractBoundaryWindowExactlyFiveFrames(t *testing.T) {
	// 2.0s at 2.5fps: 5 total frames, margins truncate to zero frames, the
	// window holds exactly the minimum.
	still := flatFrame(100, 64)
	defer still.Close()
	frames := make([]gocv.Mat, 5)
	for i := range frames {
		frames[i] = still
	}
	clip := writeClip(t, 2.5, frames)

	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))
	set, err := p.Extract(context.Background(), clip)
	require.NoError(t, err)
	require.Len(t, set.Frames, 5)
	assert.Equal(t, 5, set.WindowLength)
}

func TestExtractIdempotent(t *testing.T) {
	clip := actionClip(t, 30, 90, 45)
	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))

	first, err := p.Extract(context.Background(), clip)
	require.NoError(t, err)
	second, err := p.Extract(context.Background(), clip)
	require.NoError(t, err)

	require.Len(t, second.Frames, len(first.Frames))
	assert.Equal(t, first.PeakWindowPosition, second.PeakWindowPosition)
	assert.Equal(t, first.PeakScore, second.PeakScore)
	for i := range first.Frames {
		assert.Equal(t, first.Frames[i].FrameIndex, second.Frames[i].FrameIndex)
		assert.Equal(t, first.Frames[i].Quality, second.Frames[i].Quality)
		assert.Equal(t, first.Frames[i].JPEG, second.Frames[i].JPEG)
	}
}

func TestExtractCleansUpScratchFiles(t *testing.T) {
	countScratch := func() int {
		matches, err := filepath.Glob(filepath.Join(os.TempDir(), "ecodrop-video-*"))
		require.NoError(t, err)
		return len(matches)
	}
	before := countScratch()

	p := NewPipeline(DefaultConfig(), zaptest.NewLogger(t))

	// Failure path.
	_, err := p.Extract(context.Background(), []byte("garbage"))
	require.Error(t, err)

	// Success path.
	_, err = p.Extract(context.Background(), actionClip(t, 30, 90, 45))
	require.NoError(t, err)

	assert.Equal(t, before, countScratch(), "scratch files must be removed on every exit path")
}
