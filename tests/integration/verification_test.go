package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/archive"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/email"
	miniostorage "github.com/ecodrop/ecodrop-keyframe-service/internal/infra/minio"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/postgres"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/rabbitmq"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/vision"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/usecase"
	"github.com/ecodrop/ecodrop-keyframe-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"gocv.io/x/gocv"
)

// writeActionClip synthesizes a 3s 30fps clip with a high-contrast change at
// t=1.5s, the same shape the pipeline unit tests use.
func writeActionClip(t *testing.T, path string) {
	t.Helper()

	writer, err := gocv.VideoWriterFile(path, "MJPG", 30, 64, 64, true)
	require.NoError(t, err)
	require.True(t, writer.IsOpened())
	defer writer.Close()

	still := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0), 64, 64, gocv.MatTypeCV8UC3)
	defer still.Close()
	flash := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 64, 64, gocv.MatTypeCV8UC3)
	defer flash.Close()

	for i := 0; i < 90; i++ {
		frame := still
		if i == 45 {
			frame = flash
		}
		require.NoError(t, writer.Write(frame))
	}
}

func TestVerifyDisposalEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Run migrations
	err = postgres.RunMigrations(pgConnStr, "../../migrations")
	require.NoError(t, err)

	// Setup MinIO storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:    minioEndpoint,
		AccessKey:   "minioadmin",
		SecretKey:   "minioadmin",
		UseSSL:      false,
		VideoBucket: "disposal-videos",
		FrameBucket: "disposal-keyframes",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	// Upload synthetic disposal video
	videoPath := filepath.Join(t.TempDir(), "clip.avi")
	writeActionClip(t, videoPath)

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/clip.avi"
	_, err = minioClient.FPutObject(ctx, "disposal-videos", videoKey, videoPath, miniogo.PutObjectOptions{
		ContentType: "video/x-msvideo",
	})
	require.NoError(t, err)

	// Setup RabbitMQ publishers
	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "ecodrop.disposal")
	require.NoError(t, err)

	resultPub := rabbitmq.NewResultPublisher(pub)
	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "disposal.submitted.dlq")

	// Setup DB pool
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	// Setup use case
	log, _ := logger.New("debug")
	repo := postgres.NewJobRepository(pool)
	pipeline := vision.NewPipeline(vision.DefaultConfig(), log)
	bundler := archive.NewBundler()
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewVerifyDisposalUseCase(
		repo, storage, pipeline, bundler,
		resultPub, statusPub, dlqPub, notifier,
		log,
		usecase.VerifyDisposalConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	// Setup consumer
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:            rmqURL,
		Queue:          "disposal.submitted",
		Exchange:       "ecodrop.disposal",
		DLQ:            "disposal.submitted.dlq",
		KeyframesQueue: "disposal.keyframes",
		StatusQueue:    "disposal.status",
		Prefetch:       1,
		WorkerCount:    1,
		BaseDelayMs:    100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go consumer.Start(consumerCtx)

	// Listen on the keyframes queue like the classifier would
	listenCh, err := rmqConn.Channel()
	require.NoError(t, err)
	keyframeDeliveries, err := listenCh.ConsumeWithContext(ctx, "disposal.keyframes", "", true, false, false, false, nil)
	require.NoError(t, err)

	// Submit the job
	jobID := uuid.New()
	raw, err := json.Marshal(entity.DisposalSubmittedMessage{
		JobID:    jobID,
		UserID:   "testuser",
		VideoKey: videoKey,
		FileSize: fileSize(t, videoPath),
	})
	require.NoError(t, err)

	submitCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = submitCh.PublishWithContext(ctx, "ecodrop.disposal", "disposal.submitted", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        raw,
	})
	require.NoError(t, err)

	// Wait for the keyframes-ready event
	var ready entity.KeyframesReadyMessage
	select {
	case d := <-keyframeDeliveries:
		require.NoError(t, json.Unmarshal(d.Body, &ready))
	case <-time.After(2 * time.Minute):
		t.Fatal("timed out waiting for keyframes-ready event")
	}

	assert.Equal(t, jobID, ready.JobID)
	require.Len(t, ready.Frames, 5)
	roles := entity.KeyframeRoles()
	for i, ref := range ready.Frames {
		assert.Equal(t, roles[i], ref.Role)

		obj, err := minioClient.GetObject(ctx, "disposal-keyframes", ref.ObjectKey, miniogo.GetObjectOptions{})
		require.NoError(t, err)
		stat, err := obj.Stat()
		require.NoError(t, err)
		assert.Greater(t, stat.Size, int64(0))
	}
	assert.InDelta(t, 45, ready.Frames[2].FrameIndex, 1)

	// Job row reflects completion
	job, err := repo.FindByID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, ready.BundleKey, job.BundleKey)
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}
