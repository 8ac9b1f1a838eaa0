package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/archive"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/config"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/email"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/metrics"
	miniostorage "github.com/ecodrop/ecodrop-keyframe-service/internal/infra/minio"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/postgres"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/rabbitmq"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/tracing"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/infra/vision"
	"github.com/ecodrop/ecodrop-keyframe-service/internal/usecase"
	"github.com/ecodrop/ecodrop-keyframe-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting ecodrop-keyframe-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:    cfg.MinIOEndpoint,
		AccessKey:   cfg.MinIOAccessKey,
		SecretKey:   cfg.MinIOSecretKey,
		UseSSL:      cfg.MinIOUseSSL,
		VideoBucket: cfg.MinIOVideoBucket,
		FrameBucket: cfg.MinIOFrameBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	resultPub := rabbitmq.NewResultPublisher(pub)
	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	pipeline := vision.NewPipeline(cfg.PipelineConfig(), log)
	bundler := archive.NewBundler()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewVerifyDisposalUseCase(
		repo, storage, pipeline, bundler,
		resultPub, statusPub, dlqPub, notifier,
		log,
		usecase.VerifyDisposalConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:            cfg.RabbitMQURL,
		Queue:          cfg.RabbitMQSubmittedQueue,
		Exchange:       cfg.RabbitMQExchange,
		DLQ:            cfg.RabbitMQDLQ,
		KeyframesQueue: cfg.RabbitMQKeyframesQueue,
		StatusQueue:    cfg.RabbitMQStatusQueue,
		Prefetch:       cfg.RabbitMQPrefetch,
		WorkerCount:    cfg.WorkerCount,
		BaseDelayMs:    cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("ecodrop-keyframe-service started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("ecodrop-keyframe-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
