package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/facedetect"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/ingest"
	mw "server/internal/middleware"
	"server/internal/queue"
	"server/internal/scan"
	"server/internal/storage"
	"server/internal/validation"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := infra.MigrateUp(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	store, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	detector, err := newFaceDetector(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure face detection")
	}

	images := repo.NewImageRepository(pool)

	pipeline := validation.NewPipeline(validation.Config{
		MaxFileSizeBytes:       cfg.MaxFileSizeBytes,
		AllowedMimeTypes:       cfg.AllowedMimeTypes,
		MinWidth:               cfg.MinResolutionWidth,
		MinHeight:              cfg.MinResolutionHeight,
		BlurVarianceThreshold:  cfg.BlurVarianceThreshold,
		MinFaceAreaRatio:       cfg.MinFaceAreaRatio,
		DuplicateLookupEnabled: cfg.DuplicateLookupEnabled,
	}, images, detector, scan.New(), logger)
	validator := validation.NewBatchValidator(pipeline, cfg.UploadWorkers)

	tasks := queue.NewMemoryQueue(cfg.PostProcessQueueSize)
	consumer := queue.NewConsumer(tasks, func(ctx context.Context, task queue.Task) error {
		// Post-acceptance hook: completed uploads land here for any work
		// decoupled from the request path.
		logger.Debug().Str("image_id", task.ImageID).Msg("post-process task handled")
		return nil
	}, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("post-process consumer stopped")
		}
	}()

	orchestrator := ingest.NewOrchestrator(ingest.Config{
		ThumbnailWidthPx: cfg.ThumbnailWidthPx,
		SignedURLTTL:     cfg.SignedURLTTL,
		CallTimeout:      cfg.ExternalCallTimeout,
		Workers:          cfg.UploadWorkers,
	}, images, store, tasks, logger)

	var lookup mw.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip resolver disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(logger, images, store, validator, orchestrator)
	router := httpapi.NewRouter(app, logger, cfg.DefaultLocale, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newBlobStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.BlobStore, error) {
	switch cfg.StorageBackend {
	case infra.StorageBackendMinio:
		return storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		path := cfg.StoragePath
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		logger.Info().Str("path", path).Msg("using filesystem blob store")
		return storage.NewFileStore(path, cfg.StorageBaseURL)
	}
}

func newFaceDetector(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.FaceDetector, error) {
	if cfg.FaceDetector == infra.FaceDetectorRekognition {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
		if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return facedetect.NewRekognition(awsCfg, cfg.ExternalCallTimeout), nil
	}

	// Development fallback: report one well-sized face so the rest of the
	// chain stays exercisable without AWS credentials.
	logger.Warn().Msg("face detection running in static mode")
	return facedetect.NewStatic(1, 0.25), nil
}
