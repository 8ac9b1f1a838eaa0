package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/port"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/metrics"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/vision"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type VerifyDisposalUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	extractor port.KeyframeExtractor
	bundler   port.Bundler
	results   port.ResultPublisher
	status    port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type VerifyDisposalConfig struct {
	TempDir    string
	MaxRetries int
}

func NewVerifyDisposalUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	extractor port.KeyframeExtractor,
	bundler port.Bundler,
	results port.ResultPublisher,
	status port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg VerifyDisposalConfig,
) *VerifyDisposalUseCase {
	return &VerifyDisposalUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		bundler:   bundler,
		results:   results,
		status:    status,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *VerifyDisposalUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "VerifyDisposalUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.DisposalSubmittedMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewVerificationJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *VerifyDisposalUseCase) runPipeline(
	ctx context.Context,
	job *entity.VerificationJob,
	msg entity.DisposalSubmittedMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download the disposal video from object storage.
	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	video, err := os.ReadFile(videoPath)
	if err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "read_video: "+err.Error(), log)
	}

	// Run the keyframe extraction pipeline.
	exStart := time.Now()
	exCtx, spanEx := tracer.Start(ctx, "extract_keyframes")
	set, err := uc.extractor.Extract(exCtx, video)
	spanEx.End()
	if err != nil {
		if reason, userMsg, permanent := classifyExtractionError(err); permanent {
			log.Warn("video rejected by pipeline", zap.String("reason", reason), zap.Error(err))
			metrics.VideosRejectedTotal.WithLabelValues(reason).Inc()
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, userMsg)
		}
		log.Error("keyframe extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_keyframes: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.KeyframesExtractedTotal.Add(float64(len(set.Frames)))
	for _, f := range set.Frames {
		if !f.Quality.Passed {
			metrics.QualityFallbacksTotal.Inc()
		}
	}

	// Upload the five frames individually for the classifier.
	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_frames")
	refs := make([]entity.KeyframeRef, 0, len(set.Frames))
	for _, frame := range set.Frames {
		key := fmt.Sprintf("%s/%s/%s.jpg", msg.UserID, job.ID.String(), frame.Role)
		if err := uc.storage.UploadFrame(upCtx, key, frame.JPEG); err != nil {
			spanUp.End()
			log.Error("frame upload failed", zap.String("key", key), zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_frame: "+err.Error(), log)
		}
		refs = append(refs, entity.KeyframeRef{
			Role:       frame.Role,
			ObjectKey:  key,
			FrameIndex: frame.FrameIndex,
			Quality:    frame.Quality,
		})
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Audit bundle: the five frames plus selection manifest in one zip.
	bundleKey, err := uc.uploadBundle(ctx, job, msg, set, workDir)
	if err != nil {
		log.Error("bundle upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_bundle: "+err.Error(), log)
	}

	job.MarkCompleted(bundleKey, set)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishKeyframesReady(ctx, job, msg, set, refs, bundleKey, log)
	uc.publishStatus(ctx, job, log)

	log.Info("disposal video verified",
		zap.Float64("fps", set.FPS),
		zap.Float64("duration_seconds", set.DurationSeconds),
		zap.Int("peak_window_position", set.PeakWindowPosition),
		zap.Int("frames_passed", set.QualityPassedCount()),
		zap.String("bundle_key", bundleKey),
	)

	return nil
}

// classifyExtractionError maps the pipeline's fatal errors to DLQ reasons and
// user-facing messages. All three are permanent: re-running the pipeline over
// the same bytes cannot change the outcome.
func classifyExtractionError(err error) (reason, userMsg string, permanent bool) {
	switch {
	case errors.Is(err, vision.ErrVideoTooShort):
		return "too_short", "video must be at least 2 seconds long", true
	case errors.Is(err, vision.ErrVideoOpen):
		return "unreadable", "uploaded file is not a readable video", true
	case errors.Is(err, vision.ErrInsufficientFrames):
		return "insufficient_frames", "video processing failed", true
	default:
		return "", "", false
	}
}

func (uc *VerifyDisposalUseCase) uploadBundle(
	ctx context.Context,
	job *entity.VerificationJob,
	msg entity.DisposalSubmittedMessage,
	set *entity.KeyframeSet,
	workDir string,
) (string, error) {
	bundlePath := filepath.Join(workDir, "keyframes.zip")
	if err := uc.bundler.CreateBundle(ctx, set, bundlePath); err != nil {
		return "", fmt.Errorf("create bundle: %w", err)
	}

	bundleFile, err := os.Open(bundlePath)
	if err != nil {
		return "", fmt.Errorf("open bundle: %w", err)
	}
	defer bundleFile.Close()

	stat, err := bundleFile.Stat()
	if err != nil {
		return "", fmt.Errorf("stat bundle: %w", err)
	}

	bundleKey := fmt.Sprintf("%s/%s/keyframes.zip", msg.UserID, job.ID.String())
	if err := uc.storage.UploadBundle(ctx, bundleKey, bundleFile, stat.Size()); err != nil {
		return "", err
	}
	return bundleKey, nil
}

func (uc *VerifyDisposalUseCase) publishKeyframesReady(
	ctx context.Context,
	job *entity.VerificationJob,
	msg entity.DisposalSubmittedMessage,
	set *entity.KeyframeSet,
	refs []entity.KeyframeRef,
	bundleKey string,
	log *zap.Logger,
) {
	ready := entity.KeyframesReadyMessage{
		JobID:              job.ID,
		UserID:             job.UserID,
		VideoKey:           job.VideoKey,
		Frames:             refs,
		BundleKey:          bundleKey,
		FPS:                set.FPS,
		DurationSeconds:    set.DurationSeconds,
		PeakWindowPosition: set.PeakWindowPosition,
	}
	data, _ := json.Marshal(ready)
	if err := uc.results.PublishKeyframesReady(ctx, data); err != nil {
		log.Error("failed to publish keyframes-ready event", zap.Error(err))
	}
}

func (uc *VerifyDisposalUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.VerificationJob,
	msg entity.DisposalSubmittedMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *VerifyDisposalUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.VerificationJob,
	msg entity.DisposalSubmittedMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *VerifyDisposalUseCase) publishStatus(ctx context.Context, job *entity.VerificationJob, log *zap.Logger) {
	statusMsg := entity.VerificationStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		BundleKey:    job.BundleKey,
		FramesPassed: job.FramesPassed,
		Duration:     job.VideoDuration,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.status.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
