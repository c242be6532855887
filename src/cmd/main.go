package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	app "imageserv/src/app"
	cfg "imageserv/src/configuration"
	"imageserv/src/logger"
	"imageserv/src/repository"
	server "imageserv/src/server"
)

func main() {
	config, err := cfg.ReadProperties()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(config.LogLevel, config.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := newGateway(ctx, config.S3, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", config.S3.Driver).Msg("could not create object store client")
	}

	images := app.NewImageService(gateway, config.S3.Endpoint, config.S3.Bucket, log)
	if err := images.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Str("bucket", config.S3.Bucket).Msg("bucket bootstrap failed")
	}

	if err := server.RunServer(ctx, config, images, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func newGateway(ctx context.Context, s3 cfg.S3Properties, log zerolog.Logger) (app.Gateway, error) {
	switch s3.Driver {
	case cfg.DriverAWS:
		return app.NewAwsS3Client(ctx, s3.Endpoint, s3.Region, s3.AccessKey, s3.SecretKey)
	case cfg.DriverMemory:
		log.Warn().Msg("using in-memory object store, images are lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		return app.NewMinioS3Client(s3.Endpoint, s3.Region, s3.AccessKey, s3.SecretKey)
	}
}
