package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/consumer/worker"
	infraPkg "github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	// The consumer binary only makes sense against the broker.
	if os.Getenv("QUEUE_BACKEND") == "" {
		_ = os.Setenv("QUEUE_BACKEND", "rabbitmq")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := worker.NewProcessor(repo, infra.Storage, infra.Engine, infra.Logger, cfg.EnvConfig.Stitcher.MaxImageWidth)

	stitchConsumer := worker.NewStitchConsumer(infra.RabbitMQ.Channel, infra, repo, processor, cfg.EnvConfig.Queue.WorkerCount)
	if err := stitchConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Stitch consumer: %v", err)
		log.Fatalf("Failed to start Stitch consumer: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	infra.RabbitMQ.Close()
	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")

	infra.Telemetry.Shutdown(context.Background())
	_ = infra.Logger.Shutdown(context.Background())
}
